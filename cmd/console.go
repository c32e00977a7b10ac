package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/term"

	"library-console/library"
)

// readPassword securely reads a password with masking.
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	fmt.Println()
	return strings.TrimSpace(string(bytePassword)), nil
}

func prompt(sc *bufio.Scanner, label string) (string, bool) {
	fmt.Print(label)
	if !sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(sc.Text()), true
}

func promptInt64(sc *bufio.Scanner, label string) (int64, bool) {
	text, ok := prompt(sc, label)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		fmt.Printf("Invalid number: %s\n", text)
		return 0, false
	}
	return n, true
}

// confirmAction asks before any mutation is issued. Nothing is written
// until the operator says yes.
func confirmAction(sc *bufio.Scanner, question string) bool {
	answer, ok := prompt(sc, question+" (y/n): ")
	return ok && (strings.EqualFold(answer, "y") || strings.EqualFold(answer, "yes"))
}

func runConsole() error {
	mgr, err := openManager()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer mgr.Close()

	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println("Welcome to the Library Management Console")
	sess, ok := loginLoop(scanner, mgr)
	if !ok {
		return nil
	}

	fmt.Printf("\nLogged in as %s (%s)\n", sess.Name, sess.Role)
	printCommands(sess)

	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}
		cmd := strings.TrimSpace(scanner.Text())

		switch cmd {
		case "help":
			printCommands(sess)
		case "list books":
			handleListBooks(mgr)
		case "search book":
			handleSearchBooks(scanner, mgr)
		case "list categories":
			handleListCategories(mgr)
		case "request":
			handleRequestLoan(scanner, mgr, sess)
		case "my loans":
			handleMyLoans(mgr, sess)
		case "my history":
			handleUserHistory(mgr, sess, sess.UserID)
		case "edit profile":
			handleEditProfile(scanner, mgr, sess, sess.UserID)
		case "change password":
			handleChangePassword(scanner, mgr, sess)
		case "exit":
			fmt.Println("Goodbye!")
			return nil
		default:
			if sess.Role == library.RoleAdmin && handleAdminCommand(cmd, scanner, mgr, sess) {
				continue
			}
			fmt.Println("Unknown command. Type 'help' for the available commands.")
		}
	}
	return nil
}

func handleAdminCommand(cmd string, sc *bufio.Scanner, mgr *library.Manager, sess library.Session) bool {
	switch cmd {
	case "approve pending":
		handleApprovePending(sc, mgr, sess)
	case "issue loan":
		handleIssueLoan(sc, mgr, sess)
	case "return loan":
		handleReturnLoan(sc, mgr, sess)
	case "add book":
		handleAddBook(sc, mgr, sess)
	case "edit book":
		handleEditBook(sc, mgr, sess)
	case "delete book":
		handleDeleteBook(sc, mgr, sess)
	case "add category":
		handleAddCategory(sc, mgr, sess)
	case "delete category":
		handleDeleteCategory(sc, mgr, sess)
	case "add user":
		handleAddUser(sc, mgr, sess)
	case "list users":
		handleListUsers(mgr)
	case "deactivate user":
		handleSetUserStatus(sc, mgr, sess, false)
	case "activate user":
		handleSetUserStatus(sc, mgr, sess, true)
	case "user history":
		if userID, ok := promptInt64(sc, "User ID: "); ok {
			handleUserHistory(mgr, sess, userID)
		}
	case "pending loans":
		handleLoanReport(mgr, reportPending)
	case "active loans":
		handleLoanReport(mgr, reportActive)
	case "overdue loans":
		handleLoanReport(mgr, reportOverdue)
	case "loan history":
		handleLoanReport(mgr, reportHistory)
	case "most borrowed":
		handleMostBorrowed(mgr)
	case "export report":
		handleExportReport(sc, mgr)
	default:
		return false
	}
	return true
}

func loginLoop(sc *bufio.Scanner, mgr *library.Manager) (library.Session, bool) {
	for {
		name, ok := prompt(sc, "Username (or 'exit'): ")
		if !ok || name == "exit" {
			return library.Session{}, false
		}
		password, err := readPassword("Password: ")
		if err != nil {
			fmt.Printf("Error reading password: %v\n", err)
			continue
		}
		sess, err := mgr.Login(name, password)
		if err != nil {
			fmt.Printf("Login failed: %v\n", err)
			continue
		}
		return sess, true
	}
}

func printCommands(sess library.Session) {
	fmt.Println("Available commands:")
	fmt.Println("  Catalog: list books, search book, list categories")
	fmt.Println("  Loans: request, my loans, my history")
	fmt.Println("  Account: edit profile, change password")
	if sess.Role == library.RoleAdmin {
		fmt.Println("  Circulation: approve pending, issue loan, return loan")
		fmt.Println("  Catalog admin: add book, edit book, delete book, add category, delete category")
		fmt.Println("  Users: add user, list users, deactivate user, activate user, user history")
		fmt.Println("  Reports: pending loans, active loans, overdue loans, loan history, most borrowed, export report")
	}
	fmt.Println("  System: help, exit")
}

// ------------------ Loans ------------------

func handleRequestLoan(sc *bufio.Scanner, mgr *library.Manager, sess library.Session) {
	code, ok := prompt(sc, "Book CDJ code: ")
	if !ok || code == "" {
		return
	}
	book, err := mgr.GetBook(code)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if !confirmAction(sc, fmt.Sprintf("Request loan of '%s'?", book.Title)) {
		return
	}
	loan, err := mgr.Loans().RequestLoan(sess, code)
	if err != nil {
		fmt.Printf("Error requesting loan: %v\n", err)
		return
	}
	fmt.Printf("Request registered (loan %d), pending approval. Due %s if approved.\n",
		loan.ID, loan.DueAt.Format("2006-01-02"))
}

// handleApprovePending walks the pending queue one request at a time, the
// operator approving, rejecting or skipping each.
func handleApprovePending(sc *bufio.Scanner, mgr *library.Manager, sess library.Session) {
	pending, err := mgr.PendingLoans()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(pending) == 0 {
		fmt.Println("No pending requests.")
		return
	}

	for _, d := range pending {
		fmt.Printf("\nLoan %d | User: %s | Book: %s (%s) | Requested: %s\n",
			d.ID, d.UserName, d.BookTitle, d.BookCode, d.RequestedAt.Format("2006-01-02"))
		answer, ok := prompt(sc, "Approve (a), Reject (r), Skip (Enter)? ")
		if !ok {
			return
		}
		switch strings.ToLower(answer) {
		case "a":
			decision, err := mgr.Loans().ApproveLoan(sess, d.ID)
			if err != nil {
				fmt.Printf("Error approving loan: %v\n", err)
				continue
			}
			if decision == library.ApprovalAutoReject {
				fmt.Println("User already has an active loan of this book. Request auto-rejected.")
			} else {
				fmt.Println("Loan approved and book assigned.")
			}
		case "r":
			if err := mgr.Loans().RejectLoan(sess, d.ID); err != nil {
				fmt.Printf("Error rejecting loan: %v\n", err)
			} else {
				fmt.Println("Loan rejected.")
			}
		}
	}
}

func handleIssueLoan(sc *bufio.Scanner, mgr *library.Manager, sess library.Session) {
	name, ok := prompt(sc, "User name: ")
	if !ok || name == "" {
		return
	}
	user, err := mgr.FindActiveUserByName(name)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	code, ok := prompt(sc, "Book CDJ code: ")
	if !ok || code == "" {
		return
	}
	if !confirmAction(sc, fmt.Sprintf("Issue '%s' to %s?", code, user.Name)) {
		return
	}
	loan, err := mgr.Loans().IssueLoan(sess, user.ID, code)
	if err != nil {
		fmt.Printf("Error issuing loan: %v\n", err)
		return
	}
	fmt.Printf("Loan %d issued. Due %s.\n", loan.ID, loan.DueAt.Format("2006-01-02"))
}

func handleReturnLoan(sc *bufio.Scanner, mgr *library.Manager, sess library.Session) {
	name, ok := prompt(sc, "User name: ")
	if !ok || name == "" {
		return
	}
	user, err := mgr.FindActiveUserByName(name)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	history, err := mgr.UserHistory(sess, user.ID)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	var active []library.LoanDetail
	for _, d := range history {
		if d.State == library.LoanActive {
			active = append(active, d)
		}
	}
	if len(active) == 0 {
		fmt.Printf("%s has no active loans.\n", user.Name)
		return
	}

	fmt.Printf("%-8s %-10s %-35s %-12s\n", "Loan", "Code", "Title", "Due")
	for _, d := range active {
		fmt.Printf("%-8d %-10s %-35s %-12s\n", d.ID, d.BookCode, truncateString(d.BookTitle, 35), d.DueAt.Format("2006-01-02"))
	}

	loanID, ok := promptInt64(sc, "Loan ID to return: ")
	if !ok {
		return
	}
	if !confirmAction(sc, "Confirm return?") {
		return
	}
	if err := mgr.Loans().ReturnLoan(sess, loanID); err != nil {
		fmt.Printf("Error returning loan: %v\n", err)
		return
	}
	fmt.Println("Book returned.")
}

func handleMyLoans(mgr *library.Manager, sess library.Session) {
	details, err := mgr.MyLoans(sess)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(details) == 0 {
		fmt.Println("You have no outstanding loans.")
		return
	}
	printLoanTable(details)
}

func handleUserHistory(mgr *library.Manager, sess library.Session, userID int64) {
	details, err := mgr.UserHistory(sess, userID)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(details) == 0 {
		fmt.Println("No loans on record.")
		return
	}
	printLoanTable(details)
}

// ------------------ Reports ------------------

type reportKind int

const (
	reportPending reportKind = iota
	reportActive
	reportOverdue
	reportHistory
)

func loadReport(mgr *library.Manager, kind reportKind) ([]library.LoanDetail, error) {
	switch kind {
	case reportPending:
		return mgr.PendingLoans()
	case reportActive:
		return mgr.ActiveLoans()
	case reportOverdue:
		return mgr.OverdueLoans()
	default:
		return mgr.FullHistory()
	}
}

func handleLoanReport(mgr *library.Manager, kind reportKind) {
	details, err := loadReport(mgr, kind)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(details) == 0 {
		fmt.Println("Nothing to show.")
		return
	}
	printLoanTable(details)
}

func handleMostBorrowed(mgr *library.Manager) {
	ranked, err := mgr.MostBorrowed(10)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(ranked) == 0 {
		fmt.Println("No loans on record.")
		return
	}
	fmt.Printf("%-10s %-35s %-25s %s\n", "Code", "Title", "Author", "Loans")
	fmt.Println(strings.Repeat("-", 80))
	for _, r := range ranked {
		fmt.Printf("%-10s %-35s %-25s %d\n",
			r.Book.Code, truncateString(r.Book.Title, 35), truncateString(r.Book.Author, 25), r.Count)
	}
}

func handleExportReport(sc *bufio.Scanner, mgr *library.Manager) {
	kindName, ok := prompt(sc, "Report (pending/active/overdue/history): ")
	if !ok {
		return
	}
	kind, ok := reportByName(kindName)
	if !ok {
		fmt.Printf("Unknown report: %s\n", kindName)
		return
	}
	path, ok := prompt(sc, "Output file: ")
	if !ok || path == "" {
		return
	}
	details, err := loadReport(mgr, kind)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	headers, rows := library.LoanCSVRows(details)
	if err := mgr.ExportCSV(path, headers, rows); err != nil {
		fmt.Printf("Error exporting: %v\n", err)
		return
	}
	fmt.Printf("Exported %d rows to %s\n", len(rows), path)
}

func reportByName(name string) (reportKind, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "pending":
		return reportPending, true
	case "active":
		return reportActive, true
	case "overdue":
		return reportOverdue, true
	case "history":
		return reportHistory, true
	}
	return 0, false
}

func printLoanTable(details []library.LoanDetail) {
	fmt.Printf("%-8s %-20s %-10s %-30s %-12s %-12s %-10s %s\n",
		"Loan", "User", "Code", "Title", "Requested", "Due", "State", "Late")
	fmt.Println(strings.Repeat("-", 115))
	for _, d := range details {
		late := ""
		if d.DaysLate > 0 {
			late = fmt.Sprintf("%dd", d.DaysLate)
		}
		fmt.Printf("%-8d %-20s %-10s %-30s %-12s %-12s %-10s %s\n",
			d.ID,
			truncateString(d.UserName, 20),
			d.BookCode,
			truncateString(d.BookTitle, 30),
			d.RequestedAt.Format("2006-01-02"),
			d.DueAt.Format("2006-01-02"),
			d.State,
			late)
	}
}

// ------------------ Catalog ------------------

func handleListBooks(mgr *library.Manager) {
	books, err := mgr.GetAllBooks()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(books) == 0 {
		fmt.Println("No books in library.")
		return
	}
	printBookTable(books)
}

func handleSearchBooks(sc *bufio.Scanner, mgr *library.Manager) {
	query, ok := prompt(sc, "Query: ")
	if !ok || query == "" {
		return
	}
	books, err := mgr.SearchBooks(query)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(books) == 0 {
		fmt.Printf("No books found matching '%s'.\n", query)
		return
	}
	printBookTable(books)
}

func printBookTable(books []library.Book) {
	fmt.Printf("%-10s %-35s %-25s %-8s %-12s\n", "Code", "Title", "Author", "Copies", "Status")
	fmt.Println(strings.Repeat("-", 95))
	for _, b := range books {
		fmt.Printf("%-10s %-35s %-25s %-8d %-12s\n",
			b.Code, truncateString(b.Title, 35), truncateString(b.Author, 25), b.Copies, b.Status)
	}
}

func handleAddBook(sc *bufio.Scanner, mgr *library.Manager, sess library.Session) {
	handleListCategories(mgr)
	categoryID, ok := promptInt64(sc, "Category ID: ")
	if !ok {
		return
	}
	title, ok := prompt(sc, "Title: ")
	if !ok {
		return
	}
	author, ok := prompt(sc, "Author: ")
	if !ok {
		return
	}
	isbn, ok := prompt(sc, "ISBN (optional): ")
	if !ok {
		return
	}
	suffix, ok := prompt(sc, "CDJ suffix (digits): ")
	if !ok {
		return
	}
	copiesStr, ok := prompt(sc, "Copies: ")
	if !ok {
		return
	}
	copies, err := strconv.Atoi(copiesStr)
	if err != nil || copies < 1 {
		fmt.Println("Copies must be a number >= 1")
		return
	}
	location, ok := prompt(sc, "Location (optional): ")
	if !ok {
		return
	}

	if !confirmAction(sc, fmt.Sprintf("Register '%s'?", title)) {
		return
	}
	book, err := mgr.RegisterBook(sess, library.RegisterBookInput{
		Title:      title,
		Author:     author,
		ISBN:       isbn,
		CategoryID: categoryID,
		Suffix:     suffix,
		Copies:     copies,
		Location:   location,
	})
	if err != nil {
		fmt.Printf("Error registering book: %v\n", err)
		return
	}
	fmt.Printf("Registered '%s' with code %s\n", book.Title, book.Code)
}

func handleEditBook(sc *bufio.Scanner, mgr *library.Manager, sess library.Session) {
	code, ok := prompt(sc, "Book CDJ code: ")
	if !ok || code == "" {
		return
	}
	book, err := mgr.GetBook(code)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	in := library.EditBookInput{
		Title:       book.Title,
		Author:      book.Author,
		ISBN:        book.ISBN,
		Publisher:   book.Publisher,
		Year:        book.Year,
		Copies:      book.Copies,
		Location:    book.Location,
		Description: book.Description,
	}
	if v, ok := prompt(sc, fmt.Sprintf("Title [%s]: ", book.Title)); ok && v != "" {
		in.Title = v
	}
	if v, ok := prompt(sc, fmt.Sprintf("Author [%s]: ", book.Author)); ok && v != "" {
		in.Author = v
	}
	if v, ok := prompt(sc, fmt.Sprintf("Copies [%d]: ", book.Copies)); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			fmt.Println("Copies must be a number >= 1")
			return
		}
		in.Copies = n
	}
	if v, ok := prompt(sc, fmt.Sprintf("Location [%s]: ", book.Location)); ok && v != "" {
		in.Location = v
	}

	if !confirmAction(sc, "Save changes?") {
		return
	}
	if err := mgr.UpdateBook(sess, book.ID, in); err != nil {
		fmt.Printf("Error updating book: %v\n", err)
		return
	}
	fmt.Println("Book updated.")
}

func handleDeleteBook(sc *bufio.Scanner, mgr *library.Manager, sess library.Session) {
	code, ok := prompt(sc, "Book CDJ code: ")
	if !ok || code == "" {
		return
	}
	book, err := mgr.GetBook(code)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if !confirmAction(sc, fmt.Sprintf("Delete '%s'? This cannot be undone.", book.Title)) {
		return
	}
	if err := mgr.DeleteBook(sess, book.ID); err != nil {
		fmt.Printf("Error deleting book: %v\n", err)
		return
	}
	fmt.Println("Book deleted.")
}

func handleListCategories(mgr *library.Manager) {
	cats, err := mgr.GetAllCategories()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(cats) == 0 {
		fmt.Println("No categories.")
		return
	}
	fmt.Printf("%-5s %-8s %-25s %s\n", "ID", "Prefix", "Name", "Description")
	fmt.Println(strings.Repeat("-", 70))
	for _, c := range cats {
		fmt.Printf("%-5d %-8s %-25s %s\n", c.ID, c.Prefix, c.Name, truncateString(c.Description, 30))
	}
}

func handleAddCategory(sc *bufio.Scanner, mgr *library.Manager, sess library.Session) {
	name, ok := prompt(sc, "Name: ")
	if !ok {
		return
	}
	prefix, ok := prompt(sc, "Two-digit prefix: ")
	if !ok {
		return
	}
	description, ok := prompt(sc, "Description (optional): ")
	if !ok {
		return
	}
	if !confirmAction(sc, fmt.Sprintf("Create category '%s' (prefix %s)?", name, prefix)) {
		return
	}
	cat, err := mgr.AddCategory(sess, library.CategoryInput{Name: name, Prefix: prefix, Description: description})
	if err != nil {
		fmt.Printf("Error adding category: %v\n", err)
		return
	}
	fmt.Printf("Category '%s' created with ID %d\n", cat.Name, cat.ID)
}

func handleDeleteCategory(sc *bufio.Scanner, mgr *library.Manager, sess library.Session) {
	id, ok := promptInt64(sc, "Category ID: ")
	if !ok {
		return
	}
	if !confirmAction(sc, "Delete category?") {
		return
	}
	if err := mgr.DeleteCategory(sess, id); err != nil {
		fmt.Printf("Error deleting category: %v\n", err)
		return
	}
	fmt.Println("Category deleted.")
}

// ------------------ Users ------------------

func handleAddUser(sc *bufio.Scanner, mgr *library.Manager, sess library.Session) {
	name, ok := prompt(sc, "Name: ")
	if !ok {
		return
	}
	dni, ok := prompt(sc, "DNI: ")
	if !ok {
		return
	}
	email, ok := prompt(sc, "Email (optional): ")
	if !ok {
		return
	}
	roleStr, ok := prompt(sc, "Role (admin/member) [member]: ")
	if !ok {
		return
	}
	role := library.RoleMember
	if strings.EqualFold(roleStr, "admin") {
		role = library.RoleAdmin
	}
	password, err := readPassword(fmt.Sprintf("Password for %s: ", name))
	if err != nil {
		fmt.Printf("Error reading password: %v\n", err)
		return
	}

	if !confirmAction(sc, fmt.Sprintf("Register user '%s'?", name)) {
		return
	}
	user, err := mgr.RegisterUser(sess, library.RegisterUserInput{
		Name:     name,
		DNI:      dni,
		Email:    email,
		Password: password,
		Role:     role,
	})
	if err != nil {
		fmt.Printf("Error registering user: %v\n", err)
		return
	}
	fmt.Printf("Registered '%s' with ID %d\n", user.Name, user.ID)
}

func handleListUsers(mgr *library.Manager) {
	users, err := mgr.GetAllUsers()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(users) == 0 {
		fmt.Println("No users registered.")
		return
	}
	fmt.Printf("%-5s %-25s %-12s %-8s %-10s\n", "ID", "Name", "DNI", "Role", "Status")
	fmt.Println(strings.Repeat("-", 65))
	for _, u := range users {
		fmt.Printf("%-5d %-25s %-12s %-8s %-10s\n", u.ID, truncateString(u.Name, 25), u.DNI, u.Role, u.Status)
	}
}

func handleSetUserStatus(sc *bufio.Scanner, mgr *library.Manager, sess library.Session, activate bool) {
	userID, ok := promptInt64(sc, "User ID: ")
	if !ok {
		return
	}
	verb := "Deactivate"
	if activate {
		verb = "Activate"
	}
	if !confirmAction(sc, fmt.Sprintf("%s user %d?", verb, userID)) {
		return
	}
	var err error
	if activate {
		err = mgr.ActivateUser(sess, userID)
	} else {
		err = mgr.DeactivateUser(sess, userID)
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("User %d updated.\n", userID)
}

func handleEditProfile(sc *bufio.Scanner, mgr *library.Manager, sess library.Session, userID int64) {
	email, ok := prompt(sc, "New email (Enter to keep): ")
	if !ok {
		return
	}
	phone, ok := prompt(sc, "New phone (Enter to keep): ")
	if !ok {
		return
	}
	address, ok := prompt(sc, "New address (Enter to keep): ")
	if !ok {
		return
	}
	if email == "" && phone == "" && address == "" {
		fmt.Println("Nothing to change.")
		return
	}
	if !confirmAction(sc, "Save profile changes?") {
		return
	}
	if err := mgr.UpdateProfile(sess, userID, library.EditUserInput{Email: email, Phone: phone, Address: address}); err != nil {
		fmt.Printf("Error updating profile: %v\n", err)
		return
	}
	fmt.Println("Profile updated.")
}

func handleChangePassword(sc *bufio.Scanner, mgr *library.Manager, sess library.Session) {
	newPassword, err := readPassword("New password: ")
	if err != nil {
		fmt.Printf("Error reading password: %v\n", err)
		return
	}
	if strings.TrimSpace(newPassword) == "" {
		fmt.Println("Error: Password cannot be empty")
		return
	}
	if !confirmAction(sc, "Change password?") {
		return
	}
	if err := mgr.ResetPassword(sess, sess.UserID, newPassword); err != nil {
		fmt.Printf("Error changing password: %v\n", err)
		return
	}
	fmt.Println("Password changed.")
}

func truncateString(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	return s[:maxLength-3] + "..."
}
