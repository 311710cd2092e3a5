package schema

import (
	"lifedash/internal/core"
)

// RoutineCollection holds the weekly routine singleton.
const RoutineCollection = "routine"

func falseDefault() any { return false }
func emptyList() any    { return []any{} }

func expenseCategories() []string {
	out := make([]string, len(core.ExpenseCategories))
	for i, c := range core.ExpenseCategories {
		out[i] = string(c)
	}
	return out
}

func incomeCategories() []string {
	out := make([]string, len(core.IncomeCategories))
	for i, c := range core.IncomeCategories {
		out[i] = string(c)
	}
	return out
}

func moods() []string {
	out := make([]string, len(core.Moods))
	for i, m := range core.Moods {
		out[i] = string(m)
	}
	return out
}

var createdAt = Field{Name: "createdAt", Type: Timestamp, Required: true}

var (
	Tasks = &Schema{
		Kind:       "Task",
		Collection: "tasks",
		DateField:  "dueDate",
		Fields: []Field{
			{Name: "text", Type: String, Required: true},
			{Name: "completed", Type: Bool, Default: falseDefault},
			{Name: "dueDate", Type: Timestamp, Required: true},
			{Name: "notificationMinutes", Type: Integer, Nullable: true, NonNegative: true},
			createdAt,
		},
	}

	Expenses = &Schema{
		Kind:       "Expense",
		Collection: "expenses",
		DateField:  "createdAt",
		Fields: []Field{
			{Name: "category", Type: String, Required: true, Enum: expenseCategories()},
			{Name: "amount", Type: Number, Required: true, NonNegative: true},
			{Name: "description", Type: String, Required: true},
			createdAt,
		},
	}

	Income = &Schema{
		Kind:       "Income",
		Collection: "income",
		DateField:  "createdAt",
		Fields: []Field{
			{Name: "category", Type: String, Required: true, Enum: incomeCategories()},
			{Name: "amount", Type: Number, Required: true, NonNegative: true},
			{Name: "description", Type: String, Required: true},
			createdAt,
		},
	}

	MoodLogs = &Schema{
		Kind:       "MoodLog",
		Collection: "mood-logs",
		DateField:  "createdAt",
		Fields: []Field{
			{Name: "mood", Type: String, Required: true, Enum: moods()},
			createdAt,
		},
	}

	Habits = &Schema{
		Kind:       "Habit",
		Collection: "habits",
		Fields: []Field{
			{Name: "name", Type: String, Required: true},
			{Name: "description", Type: String},
			{Name: "completions", Type: TimestampList, Default: emptyList},
			createdAt,
		},
	}

	JournalEntries = &Schema{
		Kind:       "JournalEntry",
		Collection: "journal-entries",
		DateField:  "createdAt",
		Fields: []Field{
			{Name: "text", Type: String, Required: true},
			createdAt,
		},
	}

	PhotoLogs = &Schema{
		Kind:       "PhotoLog",
		Collection: "photo-logs",
		DateField:  "createdAt",
		Fields: []Field{
			{Name: "imageDataUrl", Type: String, Required: true},
			{Name: "note", Type: String},
			createdAt,
		},
	}

	Goals = &Schema{
		Kind:       "Goal",
		Collection: "goals",
		Fields: []Field{
			{Name: "title", Type: String, Required: true},
			{Name: "description", Type: String},
			{Name: "targetDate", Type: Timestamp},
			{Name: "milestones", Type: ObjectList, Default: emptyList, Elem: []Field{
				{Name: "id", Type: String, Required: true},
				{Name: "text", Type: String, Required: true},
				{Name: "completed", Type: Bool, Default: falseDefault},
				createdAt,
			}},
			createdAt,
		},
	}

	TimeLogs = &Schema{
		Kind:       "TimeLog",
		Collection: "time-logs",
		DateField:  "createdAt",
		Fields: []Field{
			{Name: "activity", Type: String, Required: true},
			{Name: "minutes", Type: Integer, Required: true, Positive: true},
			createdAt,
		},
	}

	Credentials = &Schema{
		Kind:       "Credential",
		Collection: "credentials",
		Sealed:     []string{"password"},
		Fields: []Field{
			{Name: "website", Type: String, Required: true},
			{Name: "username", Type: String, Required: true},
			{Name: "password", Type: String},
			{Name: "note", Type: String},
		},
	}
)

var all = []*Schema{
	Tasks, Expenses, Income, MoodLogs, Habits, JournalEntries, PhotoLogs, Goals, TimeLogs, Credentials,
}

// All returns every entity schema in a stable order.
func All() []*Schema {
	return append([]*Schema(nil), all...)
}

// Lookup finds a schema by collection name.
func Lookup(collection string) (*Schema, bool) {
	for _, s := range all {
		if s.Collection == collection {
			return s, true
		}
	}
	return nil, false
}

// Collections lists every entity collection plus the routine.
func Collections() []string {
	out := make([]string, 0, len(all)+1)
	for _, s := range all {
		out = append(out, s.Collection)
	}
	return append(out, RoutineCollection)
}
