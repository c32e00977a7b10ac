package library

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds every tunable policy value. Nothing in the engines is
// hard-coded; the loan ceiling and both loan periods are named options.
type Config struct {
	DBPath string

	// MaxOutstandingLoansPerUser caps a user's pending+active loans.
	MaxOutstandingLoansPerUser int

	// LoanPeriodDaysSelfService is the due period for member-requested loans.
	LoanPeriodDaysSelfService int

	// LoanPeriodDaysStaff is the due period for librarian-issued loans.
	LoanPeriodDaysStaff int

	// Bootstrap administrator credentials, created by the seeder if missing.
	AdminUsername string
	AdminPassword string
}

// LoadConfig reads .env (if present) and the environment. Missing keys fall
// back to the documented defaults.
func LoadConfig() Config {
	// A missing .env is fine; the environment still applies.
	_ = godotenv.Load()

	return Config{
		DBPath:                     getEnv("LIBRARY_DB_PATH", "library.db"),
		MaxOutstandingLoansPerUser: getEnvInt("MAX_OUTSTANDING_LOANS_PER_USER", 5),
		LoanPeriodDaysSelfService:  getEnvInt("LOAN_PERIOD_DAYS_SELF_SERVICE", 14),
		LoanPeriodDaysStaff:        getEnvInt("LOAN_PERIOD_DAYS_STAFF", 15),
		AdminUsername:              getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:              getEnv("ADMIN_PASSWORD", "admin123"),
	}
}

// DefaultConfig returns the documented defaults without touching the
// environment. Tests use it to pin policy values.
func DefaultConfig() Config {
	return Config{
		DBPath:                     "library.db",
		MaxOutstandingLoansPerUser: 5,
		LoanPeriodDaysSelfService:  14,
		LoanPeriodDaysStaff:        15,
		AdminUsername:              "admin",
		AdminPassword:              "admin123",
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
