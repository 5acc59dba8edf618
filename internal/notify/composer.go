package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/phrazzld/taskman-api/internal/domain"
)

// Subjects used for each notification kind.
const (
	subjectAssignedPrefix = "You've been assigned: "
	subjectStatusPrefix   = "Task status updated: "
	SubjectOverdueSummary = "Daily Overdue Task Summary"
)

const (
	dueDateLayout  = "2006-01-02 15:04 UTC"
	noDueDate      = "not set"
	noDescription  = "—"
	unknownProject = "unknown project"
)

var templates = template.Must(template.New("notify").Parse(`
{{define "assigned"}}<p>Hi {{.Recipient}},</p>
<p>You were assigned to task <strong>{{.Title}}</strong> in project <strong>{{.Project}}</strong>.</p>
<p>Due: {{.Due}}</p>
<p>Description: {{.Description}}</p>{{end}}

{{define "status"}}<p>Status for <strong>{{.Title}}</strong> is now <strong>{{.Status}}</strong></p>{{end}}

{{define "overdue"}}<h3>Overdue Tasks</h3>
<ul>{{range .}}
<li>{{.Title}} (Project: {{.Project}}, Due: {{.Due}})</li>{{end}}
</ul>{{end}}
`))

// Message is a composed email ready for a Channel.
type Message struct {
	Subject string
	HTML    string
}

// Composer renders notification subjects and HTML bodies. All interpolated
// values are HTML-escaped.
type Composer struct{}

// NewComposer returns a Composer.
func NewComposer() *Composer {
	return &Composer{}
}

type assignedView struct {
	Recipient   string
	Title       string
	Project     string
	Due         string
	Description string
}

type statusView struct {
	Title  string
	Status domain.TaskStatus
}

type overdueItemView struct {
	Title   string
	Project string
	Due     string
}

// Assigned composes the message sent to a task's new assignee.
func (c *Composer) Assigned(details *domain.TaskDetails) (Message, error) {
	view := assignedView{
		Title:       details.Title,
		Project:     projectName(details),
		Due:         formatDue(details.DueDate),
		Description: noDescription,
	}
	if details.Assignee != nil {
		view.Recipient = details.Assignee.DisplayName()
	}
	if details.Description != nil && *details.Description != "" {
		view.Description = *details.Description
	}

	body, err := render("assigned", view)
	if err != nil {
		return Message{}, err
	}
	return Message{Subject: subjectAssignedPrefix + details.Title, HTML: body}, nil
}

// StatusChanged composes the message sent to the assignee when a task's status
// changes.
func (c *Composer) StatusChanged(details *domain.TaskDetails) (Message, error) {
	body, err := render("status", statusView{Title: details.Title, Status: details.Status})
	if err != nil {
		return Message{}, err
	}
	return Message{Subject: subjectStatusPrefix + details.Title, HTML: body}, nil
}

// OverdueSummary composes one aggregated message listing every task.
func (c *Composer) OverdueSummary(tasks []domain.OverdueTask) (Message, error) {
	items := make([]overdueItemView, 0, len(tasks))
	for _, t := range tasks {
		due := t.DueDate
		items = append(items, overdueItemView{
			Title:   t.Title,
			Project: t.ProjectName,
			Due:     formatDue(&due),
		})
	}

	body, err := render("overdue", items)
	if err != nil {
		return Message{}, err
	}
	return Message{Subject: SubjectOverdueSummary, HTML: body}, nil
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s template: %w", name, err)
	}
	return buf.String(), nil
}

func formatDue(due *time.Time) string {
	if due == nil {
		return noDueDate
	}
	return due.UTC().Format(dueDateLayout)
}

func projectName(details *domain.TaskDetails) string {
	if details.Project.Name == "" {
		return unknownProject
	}
	return details.Project.Name
}
