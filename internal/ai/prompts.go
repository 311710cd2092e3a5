package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/template"
	"time"

	"lifedash/internal/analytics"
	"lifedash/internal/core"
	"lifedash/internal/lifedata"
)

const (
	imagePlaceholder       = "...image data present..."
	credentialsPlaceholder = "...credentials hidden..."
)

// ChatInitPrompt opens a conversation.
const ChatInitPrompt = `Begin the conversation by introducing yourself and suggesting a few questions the user could ask, for example: "How much did I spend last month?", "List my tasks for tomorrow.", or "What was my mood like last week?".`

var summaryTmpl = template.Must(template.New("summary").Parse(`
You are a compassionate and insightful personal AI assistant called Momentum AI.
Your goal is to provide a brief, reflective, and encouraging end-of-day summary based on the user's logged data.
Analyze the provided data for today and generate a summary in 3-4 short, easy-to-read paragraphs.
Use a friendly and supportive tone. Do not use markdown formatting, just plain text paragraphs. The currency is PKR.

IMPORTANT: The user has written a journal entry and possibly added a photo with a note. These are the most important pieces of data. Base your reflection primarily on their written thoughts, using the other data points as context. If there is no journal, focus on mood, tasks, and habits.

Today's Data:
- Journal Entry: {{.Journal}}
- Photo Journal Note: {{.PhotoNote}}
- Mood: {{.Mood}}
- Completed Tasks Today: {{.Completed}}
- Pending Tasks Today: {{.Pending}}
- Upcoming Tasks (Next few): {{.Upcoming}}
- Habits Status: {{.Habits}}
- This Month's Finances: Total Income: {{.Income}}, Total Expenses: {{.Expenses}}, Net Balance: {{.Net}}
- Active Goals: {{.Goals}}

Based on this data, provide a reflection covering:
1. Start by directly addressing the user's journal entry and photo note. Connect their feelings and events described there with their logged mood.
2. Weave in their task accomplishments and completed habits. If any of these align with their active goals, mention it as positive progress.
3. Offer gentle encouragement about pending tasks or habits, linking back to their journal entry or their larger goals if possible.
4. Briefly comment on their financial situation (income vs. expenses in PKR) if it seems relevant to their journaled thoughts or goals.
5. End with a positive and forward-looking statement for tomorrow, inspired by their journal and goals.
`))

var reportTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"json": toJSON,
	"num":  formatNumber,
}).Parse(`
You are an expert data analyst and personal coach AI for a life dashboard app.
Your tone is insightful, encouraging, and data-driven. The currency is PKR.
Analyze the user's data for the specified period and provide a clear, insightful, and actionable report.
The user wants a well-structured report. Use simple markdown for formatting.
- Use '### ' for section headings.
- Use a single newline for paragraphs.
- Do not use any other markdown.

Here are the required sections:
### 📈 Overall Summary
Provide a brief, high-level overview of the user's period based on the key metrics. What was the general trend?

### 😊 Mood & Well-being
Analyze the mood distribution and the average mood. Are there any noticeable patterns? For example, did their mood dip on days with high spending on 'Junk Food' or improve when they completed a 'Workout' habit? Mention the most frequent mood.

### 💰 Financial Health
Analyze their income vs. expenses in PKR. Highlight the top spending categories. Provide a brief comment on their financial discipline for the period. Mention the net balance (positive or negative).

### 💪 Habit & Goal Momentum
Comment on the user's habit consistency. Which habits are they sticking to, and which need more attention? Then, review their goal progress. Are their activities (like time logs and completed habits) aligning with their long-term ambitions?

### ⏱️ Time Management
Analyze how the user has spent their time based on their time logs. Which activities dominate? Are they investing time in activities that align with their goals, or are there potential time sinks they might want to review?

### 🚀 Actionable Advice
Based on all the data, provide 2-3 concrete, encouraging, and actionable suggestions for the user to improve or continue their great work in the next period.

Here is the data for the period:
- **Period:** {{.Period}}
- **Key Metrics:** {{json .KeyMetrics}}
- **Mood Distribution (count of days):** {{json .Report.Mood.Distribution}}
- **Habit Consistency (%):** {{json .Report.Habits}}
- **Goal Progress (%):** {{json .Report.Goals}}
- **Financials:**
    - Total Income: PKR {{num .Report.Finance.TotalIncome}}
    - Total Expenses: PKR {{num .Report.Finance.TotalExpenses}}
    - Expenses by Category (PKR): {{json .Report.Finance.ExpenseByCategory}}
- **Time Logs:**
    - Total Time Logged (minutes): {{.Report.Time.TotalMinutes}}
    - Time by Activity (minutes): {{json .Report.Time.ByActivity}}

Generate the report following the specified markdown rules.
`))

var chatTmpl = template.Must(template.New("chat").Parse(`You are a helpful and friendly AI assistant called Momentum AI. Your purpose is to help the user understand and query their personal data.
You must answer questions based *only* on the provided JSON data context. Do not make up information or answer questions outside of this context.
If you don't know the answer from the data, say so.
The current date is: {{.Now}}.
The user's data is provided below in JSON format. The currency is PKR.
<data>
{{.Data}}
</data>`))

// SummaryPrompt builds the end-of-day reflection prompt for the day of now.
func SummaryPrompt(ld *lifedata.LifeData, now time.Time, loc *time.Location) (string, error) {
	today, _ := ld.Peek(core.DateKey(now, loc))
	if today == nil {
		today = &lifedata.DailyData{}
	}

	var completed, pending []string
	for _, t := range today.Tasks {
		if t.Completed {
			completed = append(completed, t.Text)
		} else {
			pending = append(pending, t.Text)
		}
	}

	upcoming := analytics.UpcomingTasks(ld, now, loc)
	if len(upcoming) > 5 {
		upcoming = upcoming[:5]
	}
	upcomingText := make([]string, 0, len(upcoming))
	for _, t := range upcoming {
		upcomingText = append(upcomingText, t.Text)
	}

	habits := make([]string, 0, len(ld.Habits))
	for _, h := range ld.Habits {
		status := "Pending"
		if analytics.CompletedOn(h, now, loc) {
			status = "Done"
		}
		name := h.Name
		if h.Description != "" {
			name = fmt.Sprintf("%s (%s)", h.Name, h.Description)
		}
		habits = append(habits, fmt.Sprintf("%s (%s)", name, status))
	}

	goals := make([]string, 0, len(ld.Goals))
	for _, g := range ld.Goals {
		goals = append(goals, fmt.Sprintf("%s (%d%% complete)", g.Title, analytics.Progress(g)))
	}

	finance := analytics.MonthlyFinance(ld, now, loc)
	data := struct {
		Journal, PhotoNote, Mood             string
		Completed, Pending, Upcoming, Habits string
		Income, Expenses, Net                string
		Goals                                string
	}{
		Journal:   "Not written yet.",
		PhotoNote: "No photo note.",
		Mood:      "Not logged",
		Completed: joinOr(completed, ", ", "None"),
		Pending:   joinOr(pending, ", ", "None"),
		Upcoming:  joinOr(upcomingText, ", ", "None"),
		Habits:    joinOr(habits, "; ", "No habits tracked"),
		Income:    analytics.FormatAmount(finance.TotalIncome),
		Expenses:  analytics.FormatAmount(finance.TotalExpenses),
		Net:       analytics.FormatAmount(finance.NetBalance),
		Goals:     joinOr(goals, "; ", "No goals set"),
	}
	if today.JournalEntry != nil && today.JournalEntry.Text != "" {
		data.Journal = today.JournalEntry.Text
	}
	if today.PhotoLog != nil && today.PhotoLog.Note != "" {
		data.PhotoNote = today.PhotoLog.Note
	}
	if today.MoodLog != nil && today.MoodLog.Mood != "" {
		data.Mood = string(today.MoodLog.Mood)
	}
	return render(summaryTmpl, data)
}

// ReportPrompt builds the periodic analysis prompt for r.
func ReportPrompt(r analytics.PeriodReport, loc *time.Location) (string, error) {
	return render(reportTmpl, struct {
		Period     string
		KeyMetrics analytics.KeyMetrics
		Report     analytics.PeriodReport
	}{
		Period:     fmt.Sprintf("%s to %s", core.DateKey(r.Start, loc), core.DateKey(r.End, loc)),
		KeyMetrics: r.KeyMetrics(),
		Report:     r,
	})
}

// ChatSystemInstruction embeds the sanitized data as indented JSON.
func ChatSystemInstruction(ld *lifedata.LifeData, now time.Time) (string, error) {
	data, err := json.MarshalIndent(Sanitize(ld), "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode chat context: %w", err)
	}
	return render(chatTmpl, struct{ Now, Data string }{
		Now:  core.FormatTimestamp(now),
		Data: string(data),
	})
}

// SanitizedLifeData is LifeData with image payloads and credentials replaced
// by placeholders.
type SanitizedLifeData struct {
	DailyData     map[string]*lifedata.DailyData `json:"dailyData"`
	Habits        []core.Habit                   `json:"habits"`
	Goals         []core.Goal                    `json:"goals"`
	Credentials   string                         `json:"credentials"`
	WeeklyRoutine core.WeeklyRoutine             `json:"weeklyRoutine"`
}

// Sanitize returns a redacted copy of ld. ld itself is not modified.
func Sanitize(ld *lifedata.LifeData) SanitizedLifeData {
	c := ld.Clone()
	for _, d := range c.DailyData {
		if d.PhotoLog != nil {
			d.PhotoLog.ImageDataURL = imagePlaceholder
		}
	}
	return SanitizedLifeData{
		DailyData:     c.DailyData,
		Habits:        c.Habits,
		Goals:         c.Goals,
		Credentials:   credentialsPlaceholder,
		WeeklyRoutine: c.WeeklyRoutine,
	}
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", t.Name(), err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func joinOr(items []string, sep, empty string) string {
	if len(items) == 0 {
		return empty
	}
	return strings.Join(items, sep)
}

func toJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	return string(b), err
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
