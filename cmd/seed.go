package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"library-console/library"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Bootstrap the database with the admin account and a sample catalog",
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

type seedBook struct {
	title  string
	author string
	suffix string
	isbn   string
	copies int
}

func runSeed(cmd *cobra.Command, args []string) error {
	mgr, err := openManager()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer mgr.Close()

	// Seeding runs unauthenticated; fabricate an admin session for it.
	admin, err := mgr.FindActiveUserByName(cfg.AdminUsername)
	if err != nil {
		return err
	}
	sess := library.Session{UserID: admin.ID, Name: admin.Name, Role: library.RoleAdmin}

	categories := []library.CategoryInput{
		{Name: "Literature", Prefix: "10", Description: "Novels, poetry and drama"},
		{Name: "History", Prefix: "20", Description: "World and regional history"},
		{Name: "Science", Prefix: "30", Description: "Natural and formal sciences"},
		{Name: "Technology", Prefix: "40", Description: "Engineering and computing"},
	}

	catalog := map[string][]seedBook{
		"10": {
			{"One Hundred Years of Solitude", "Gabriel Garcia Marquez", "001", "9780060883287", 3},
			{"Don Quixote", "Miguel de Cervantes", "002", "9780142437230", 2},
			{"The Aleph", "Jorge Luis Borges", "003", "9780142437889", 1},
		},
		"20": {
			{"A Short History of Nearly Everything", "Bill Bryson", "001", "9780767908184", 2},
			{"Guns, Germs, and Steel", "Jared Diamond", "002", "9780393317558", 1},
		},
		"30": {
			{"Cosmos", "Carl Sagan", "001", "9780345539434", 2},
			{"A Brief History of Time", "Stephen Hawking", "002", "9780553380163", 1},
		},
		"40": {
			{"The Pragmatic Programmer", "Andrew Hunt", "001", "9780201616224", 2},
			{"Clean Code", "Robert C. Martin", "002", "9780132350884", 1},
		},
	}

	successCount := 0
	skipCount := 0

	for _, in := range categories {
		cat, err := mgr.AddCategory(sess, in)
		if err != nil {
			if errors.Is(err, library.ErrDuplicateKey) {
				existing, ferr := findCategoryByPrefix(mgr, in.Prefix)
				if ferr != nil {
					return ferr
				}
				cat = existing
				skipCount++
			} else {
				return err
			}
		}

		for _, b := range catalog[in.Prefix] {
			_, err := mgr.RegisterBook(sess, library.RegisterBookInput{
				Title:      b.title,
				Author:     b.author,
				ISBN:       b.isbn,
				CategoryID: cat.ID,
				Suffix:     b.suffix,
				Copies:     b.copies,
			})
			if err != nil {
				if errors.Is(err, library.ErrDuplicateKey) {
					skipCount++
					continue
				}
				fmt.Printf("ERROR importing %q: %v\n", b.title, err)
				continue
			}
			successCount++
		}
	}

	fmt.Printf("Seed complete: %d books imported, %d already present.\n", successCount, skipCount)

	if successCount > 0 {
		books, err := mgr.GetAllBooks()
		if err != nil {
			return err
		}
		fmt.Printf("%-10s %-45s %-30s\n", "Code", "Title", "Author")
		for _, book := range books {
			fmt.Printf("%-10s %-45s %-30s\n", book.Code, truncateString(book.Title, 45), truncateString(book.Author, 30))
		}
	}
	return nil
}

func findCategoryByPrefix(mgr *library.Manager, prefix string) (*library.Category, error) {
	cats, err := mgr.GetAllCategories()
	if err != nil {
		return nil, err
	}
	for i := range cats {
		if cats[i].Prefix == prefix {
			return &cats[i], nil
		}
	}
	return nil, fmt.Errorf("category prefix %q: %w", prefix, library.ErrNotFound)
}
