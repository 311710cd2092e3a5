package core

import (
	"time"
)

const (
	Food          ExpenseCategory = "Food & Drinks"
	Transport     ExpenseCategory = "Transport"
	Shopping      ExpenseCategory = "Shopping"
	Entertainment ExpenseCategory = "Entertainment"
	Health        ExpenseCategory = "Health"
	Utilities     ExpenseCategory = "Utilities"
	Investment    ExpenseCategory = "Investment"
	JunkFood      ExpenseCategory = "Junk Food"
	OtherExpense  ExpenseCategory = "Other"
)

const (
	Salary      IncomeCategory = "Salary"
	Profit      IncomeCategory = "Profit"
	Gift        IncomeCategory = "Gift"
	OtherIncome IncomeCategory = "Other"
)

const (
	Amazing Mood = "Amazing"
	Good    Mood = "Good"
	Okay    Mood = "Okay"
	Bad     Mood = "Bad"
	Awful   Mood = "Awful"
)

type (
	ExpenseCategory string
	IncomeCategory  string
	Mood            string

	Task struct {
		ID                  string `json:"id"`
		Text                string `json:"text"`
		Completed           bool   `json:"completed"`
		DueDate             string `json:"dueDate"`
		NotificationMinutes *int   `json:"notificationMinutes"`
		CreatedAt           string `json:"createdAt"`
	}

	Expense struct {
		ID          string          `json:"id"`
		Category    ExpenseCategory `json:"category"`
		Amount      float64         `json:"amount"`
		Description string          `json:"description"`
		CreatedAt   string          `json:"createdAt"`
	}

	Income struct {
		ID          string         `json:"id"`
		Category    IncomeCategory `json:"category"`
		Amount      float64        `json:"amount"`
		Description string         `json:"description"`
		CreatedAt   string         `json:"createdAt"`
	}

	MoodLog struct {
		ID        string `json:"id"`
		Mood      Mood   `json:"mood"`
		CreatedAt string `json:"createdAt"`
	}

	Habit struct {
		ID          string   `json:"id"`
		Name        string   `json:"name"`
		Description string   `json:"description,omitempty"`
		Completions []string `json:"completions"`
		CreatedAt   string   `json:"createdAt"`
	}

	JournalEntry struct {
		ID        string `json:"id"`
		Text      string `json:"text"`
		CreatedAt string `json:"createdAt"`
	}

	PhotoLog struct {
		ID           string `json:"id"`
		ImageDataURL string `json:"imageDataUrl"`
		Note         string `json:"note,omitempty"`
		CreatedAt    string `json:"createdAt"`
	}

	Milestone struct {
		ID        string `json:"id"`
		Text      string `json:"text"`
		Completed bool   `json:"completed"`
		CreatedAt string `json:"createdAt"`
	}

	Goal struct {
		ID          string      `json:"id"`
		Title       string      `json:"title"`
		Description string      `json:"description,omitempty"`
		TargetDate  string      `json:"targetDate,omitempty"`
		Milestones  []Milestone `json:"milestones"`
		CreatedAt   string      `json:"createdAt"`
	}

	TimeLog struct {
		ID        string `json:"id"`
		Activity  string `json:"activity"`
		Minutes   int    `json:"minutes"`
		CreatedAt string `json:"createdAt"`
	}

	Credential struct {
		ID       string `json:"id"`
		Website  string `json:"website"`
		Username string `json:"username"`
		Password string `json:"password,omitempty"`
		Note     string `json:"note,omitempty"`
	}

	// User is the single account guarding the dashboard.
	User struct {
		ID           string
		PasswordHash string
		CreatedAt    time.Time
		UpdatedAt    time.Time
	}
)

// ExpenseCategories lists the accepted expense categories in display order.
var ExpenseCategories = []ExpenseCategory{
	Food, Transport, Shopping, Entertainment, Health, Utilities, Investment, JunkFood, OtherExpense,
}

// IncomeCategories lists the accepted income categories in display order.
var IncomeCategories = []IncomeCategory{Salary, Profit, Gift, OtherIncome}

// Moods lists every mood from best to worst.
var Moods = []Mood{Amazing, Good, Okay, Bad, Awful}

// Ordinal maps a mood onto 1 (Awful) .. 5 (Amazing). Unknown moods are 0.
func (m Mood) Ordinal() int {
	switch m {
	case Amazing:
		return 5
	case Good:
		return 4
	case Okay:
		return 3
	case Bad:
		return 2
	case Awful:
		return 1
	default:
		return 0
	}
}

// MoodFromOrdinal is the inverse of Ordinal.
func MoodFromOrdinal(v int) (Mood, bool) {
	for _, m := range Moods {
		if m.Ordinal() == v {
			return m, true
		}
	}
	return "", false
}

func (m Mood) Valid() bool {
	return m.Ordinal() != 0
}

func (c ExpenseCategory) Valid() bool {
	for _, v := range ExpenseCategories {
		if v == c {
			return true
		}
	}
	return false
}

func (c IncomeCategory) Valid() bool {
	for _, v := range IncomeCategories {
		if v == c {
			return true
		}
	}
	return false
}

// CompletedMilestones counts the milestones marked done.
func (g Goal) CompletedMilestones() int {
	n := 0
	for _, m := range g.Milestones {
		if m.Completed {
			n++
		}
	}
	return n
}
