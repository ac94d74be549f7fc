package notify

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TaskDueSoonPayload is the rendering input for a single reminder
// email: one profile's batch of soon-due tasks plus the links shown in
// the footer.
type TaskDueSoonPayload struct {
	UserDisplayName string
	PlanURL         string
	SettingsURL     string
	UnsubscribeURL  string
	Tasks           []DueSoonTask
}

// DueSoonTask is one task surfaced in a task_due_soon reminder.
type DueSoonTask struct {
	Title     string
	DueDate   string // ISO-8601 YYYY-MM-DD
	DueInDays int
}

// RenderedEmail is the fully rendered, provider-agnostic email body.
type RenderedEmail struct {
	Subject   string
	TextBody  string
	HTMLBody  string
	ShortText string
}

var bucketOrder = []string{"heute", "morgen", "in 2 Tagen", "in 3 Tagen", "später"}

const maxTasksPerBucket = 10

func bucketFor(dueInDays int) string {
	switch {
	case dueInDays <= 0:
		return "heute"
	case dueInDays == 1:
		return "morgen"
	case dueInDays == 2:
		return "in 2 Tagen"
	case dueInDays == 3:
		return "in 3 Tagen"
	default:
		return "später"
	}
}

func formatDateDE(iso string) string {
	d, err := time.Parse("2006-01-02", iso)
	if err != nil {
		d = time.Now()
	}
	return d.Format("02.01.2006")
}

// RenderTaskDueSoon builds the German-locale task_due_soon email,
// grouping tasks by how soon they fall due and capping each bucket at
// 10 entries with an overflow summary line.
func RenderTaskDueSoon(payload TaskDueSoonPayload) RenderedEmail {
	grouped := make(map[string][]DueSoonTask, len(bucketOrder))
	for _, b := range bucketOrder {
		grouped[b] = nil
	}
	for _, task := range payload.Tasks {
		b := bucketFor(task.DueInDays)
		grouped[b] = append(grouped[b], task)
	}

	total := len(payload.Tasks)
	subject := strconv.Itoa(total) + " Aufgaben bald fällig"
	if total == 1 {
		subject = "1 Aufgabe bald fällig"
	}

	greeting := "Hallo,"
	if payload.UserDisplayName != "" {
		greeting = "Hallo " + payload.UserDisplayName + ","
	}

	var text strings.Builder
	text.WriteString(greeting)
	text.WriteString("\n\ndie folgenden Aufgaben stehen bald an:\n\n")

	var html strings.Builder
	html.WriteString("<p>" + greeting + "</p>\n")
	html.WriteString("<p>die folgenden Aufgaben stehen bald an:</p>\n")

	for _, bucket := range bucketOrder[:4] {
		tasks := grouped[bucket]
		if len(tasks) == 0 {
			continue
		}
		text.WriteString(bucket)
		text.WriteString(":\n")
		html.WriteString("<h3>" + bucket + "</h3><ul>\n")

		shown := tasks
		if len(shown) > maxTasksPerBucket {
			shown = shown[:maxTasksPerBucket]
		}
		for _, task := range shown {
			title := task.Title
			if title == "" {
				title = "Aufgabe"
			}
			due := formatDateDE(task.DueDate)
			text.WriteString(fmt.Sprintf("- %s (%s)\n", title, due))
			html.WriteString(fmt.Sprintf("<li>%s (%s)</li>\n", title, due))
		}
		if len(tasks) > maxTasksPerBucket {
			overflow := len(tasks) - maxTasksPerBucket
			text.WriteString(fmt.Sprintf("- ... und %d weitere\n", overflow))
			html.WriteString(fmt.Sprintf("<li>... und %d weitere</li>\n", overflow))
		}
		text.WriteString("\n")
		html.WriteString("</ul>\n")
	}

	text.WriteString("Plan öffnen: " + payload.PlanURL + "\n")
	text.WriteString("Einstellungen: " + payload.SettingsURL + "\n")
	text.WriteString("Abmelden: " + payload.UnsubscribeURL)

	html.WriteString(fmt.Sprintf("<p><a href=\"%s\">Plan öffnen</a></p>\n", payload.PlanURL))
	html.WriteString(fmt.Sprintf("<p><a href=\"%s\">Benachrichtigungseinstellungen</a></p>\n", payload.SettingsURL))
	html.WriteString(fmt.Sprintf("<p><a href=\"%s\">Abmelden</a></p>\n", payload.UnsubscribeURL))

	return RenderedEmail{
		Subject:   subject,
		TextBody:  text.String(),
		HTMLBody:  html.String(),
		ShortText: subject,
	}
}
