package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/ericfisherdev/projectsync/internal/domain"
	"github.com/ericfisherdev/projectsync/internal/resource"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
	formatYML   = "yml"
)

// Printer renders command results in the selected format.
type Printer struct {
	w      io.Writer
	format string
	now    func() time.Time
}

func NewPrinter(w io.Writer, format string) *Printer {
	return &Printer{w: w, format: strings.ToLower(format), now: time.Now}
}

func (p *Printer) structured() bool {
	switch p.format {
	case formatJSON, formatYAML, formatYML:
		return true
	}
	return false
}

// Object writes v as JSON or YAML. Table output falls back to JSON.
func (p *Printer) Object(v interface{}) error {
	switch p.format {
	case formatYAML, formatYML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(p.w, "%s", data)
		return err
	default:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(p.w, "%s\n", data)
		return err
	}
}

func (p *Printer) newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(p.w)
	t.SetStyle(table.StyleLight)
	return t
}

// Tasks renders a task list.
func (p *Printer) Tasks(tasks []*domain.Task) error {
	if p.structured() {
		return p.Object(tasks)
	}
	if len(tasks) == 0 {
		_, err := fmt.Fprintln(p.w, "No tasks found")
		return err
	}

	t := p.newTable()
	t.AppendHeader(table.Row{"ID", "Title", "Status", "Priority", "Assignees", "Due"})
	now := p.now()
	for _, task := range tasks {
		due := ""
		if task.DueDate != nil {
			due = task.DueDate.Local().Format("2006-01-02")
			if task.IsOverdue(now) {
				due += " (overdue)"
			}
		}
		assignees := "Unassigned"
		if len(task.AssignedTo) > 0 {
			assignees = strings.Join(task.AssignedTo, ", ")
		}
		t.AppendRow(table.Row{
			task.ID,
			truncate(task.Title, 40),
			statusLabel(task.Status),
			string(task.Priority),
			assignees,
			due,
		})
	}
	t.Render()
	return nil
}

func statusLabel(status domain.TaskStatus) string {
	switch status {
	case domain.StatusCompleted:
		return "✓ " + string(status)
	case domain.StatusInProgress:
		return "🔧 " + string(status)
	default:
		return string(status)
	}
}

// Notifications renders notifications newest first, as the server sends them.
func (p *Printer) Notifications(notifications []*domain.Notification) error {
	if p.structured() {
		return p.Object(notifications)
	}
	if len(notifications) == 0 {
		_, err := fmt.Fprintln(p.w, "No notifications")
		return err
	}

	t := p.newTable()
	t.AppendHeader(table.Row{"ID", "Type", "Title", "Read", "Created"})
	for _, n := range notifications {
		read := ""
		if n.IsRead {
			read = "✓"
		}
		t.AppendRow(table.Row{
			n.ID,
			string(n.Type),
			truncate(n.Title, 50),
			read,
			n.CreatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	t.Render()
	return nil
}

func (p *Printer) Projects(projects []*domain.Project, defaultProjectID string) error {
	if p.structured() {
		return p.Object(projects)
	}
	if len(projects) == 0 {
		_, err := fmt.Fprintln(p.w, "No projects found")
		return err
	}

	t := p.newTable()
	t.AppendHeader(table.Row{"ID", "Name", "Status", "Progress", "Members", "Default"})
	for _, project := range projects {
		isDefault := ""
		if project.ID == defaultProjectID {
			isDefault = "*"
		}
		t.AppendRow(table.Row{
			project.ID,
			truncate(project.Name, 40),
			string(project.Status),
			fmt.Sprintf("%d/%d", project.CompletedTasks, project.TotalTasks),
			len(project.MemberIDs),
			isDefault,
		})
	}
	t.Render()
	return nil
}

// Count renders a single labelled number.
func (p *Printer) Count(label string, n int) error {
	if p.structured() {
		return p.Object(map[string]int{label: n})
	}
	_, err := fmt.Fprintf(p.w, "%s: %d\n", label, n)
	return err
}

func (p *Printer) Profiles(config *Config) error {
	masked := make([]Profile, 0, len(config.Profiles))
	for _, name := range profileNames(config) {
		masked = append(masked, config.Profiles[name].Masked())
	}
	if p.structured() {
		return p.Object(masked)
	}
	if len(masked) == 0 {
		_, err := fmt.Fprintln(p.w, "No profiles configured")
		return err
	}

	t := p.newTable()
	t.AppendHeader(table.Row{"Name", "Server", "Project", "Default"})
	for _, profile := range masked {
		isDefault := ""
		if profile.Name == config.DefaultProfile {
			isDefault = "*"
		}
		t.AppendRow(table.Row{profile.Name, profile.ServerURL, profile.ProjectID, isDefault})
	}
	t.Render()
	return nil
}

// Frame renders one stream emission. Structured formats print the wire
// payload; table output prints a timestamped state line and, on success,
// the rendered data.
func Frame[T any](p *Printer, frame resource.Payload[T], render func(T) error) error {
	if p.structured() {
		return p.Object(frame)
	}
	stamp := p.now().Local().Format("15:04:05")
	switch {
	case frame.State == resource.StateError.String():
		_, err := fmt.Fprintf(p.w, "[%s] error: %s\n", stamp, frame.Error)
		return err
	case frame.Data == nil:
		_, err := fmt.Fprintf(p.w, "[%s] %s\n", stamp, frame.State)
		return err
	default:
		if _, err := fmt.Fprintf(p.w, "[%s] %s\n", stamp, frame.State); err != nil {
			return err
		}
		return render(*frame.Data)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// Success prints a success message with a checkmark
func Success(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, "✓ "+format+"\n", args...)
}
