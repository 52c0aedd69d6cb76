package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/projectsync/internal/domain"
	"github.com/ericfisherdev/projectsync/internal/resource"
)

func fixedPrinter(format string) (*Printer, *bytes.Buffer) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, format)
	p.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }
	return p, &buf
}

func TestPrinter_Frame(t *testing.T) {
	tasks := []*domain.Task{{ID: "t1", Title: "Ship", Status: domain.StatusTodo}}

	tests := []struct {
		name   string
		format string
		frame  resource.Payload[[]*domain.Task]
		want   []string
	}{
		{"loading table", formatTable, resource.ToPayload(resource.Loading[[]*domain.Task]()), []string{"loading"}},
		{"error table", formatTable, resource.ToPayload(resource.Error[[]*domain.Task]("Task not found", nil)), []string{"error: Task not found"}},
		{"success table", formatTable, resource.ToPayload(resource.Success(tasks)), []string{"success", "Ship", "Unassigned"}},
		{"success json", formatJSON, resource.ToPayload(resource.Success(tasks)), []string{`"state": "success"`, `"title": "Ship"`}},
		{"error yaml", formatYAML, resource.ToPayload(resource.Error[[]*domain.Task]("offline", nil)), []string{"state: error", "error: offline"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, buf := fixedPrinter(tt.format)
			require.NoError(t, Frame(p, tt.frame, p.Tasks))
			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("output %q does not contain %q", buf.String(), want)
				}
			}
		})
	}
}

func TestPrinter_TasksMarksOverdue(t *testing.T) {
	p, buf := fixedPrinter(formatTable)
	due := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	done := due

	require.NoError(t, p.Tasks([]*domain.Task{
		{ID: "a", Title: strings.Repeat("x", 60), DueDate: &due, AssignedTo: []string{"bob", "carol"}},
		{ID: "b", Title: "finished", DueDate: &done, IsCompleted: true, Status: domain.StatusCompleted},
	}))

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "(overdue)"))
	assert.Contains(t, out, "bob, carol")
	assert.Contains(t, out, strings.Repeat("x", 37)+"...")
}

func TestProfile_Masked(t *testing.T) {
	p := Profile{Name: "dev", ServerURL: "http://x", Token: "abc", Secret: "s"}
	masked := p.Masked()
	assert.Equal(t, "***masked***", masked.Token)
	assert.Equal(t, "***masked***", masked.Secret)
	assert.Equal(t, "abc", p.Token)

	assert.Error(t, (&Profile{Name: "dev", ServerURL: "http://x"}).Validate())
}

func TestConfigFile_RemoveDefaultPromotesNext(t *testing.T) {
	file := configFile{path: t.TempDir() + "/cfg.yaml"}
	require.NoError(t, file.AddProfile(Profile{Name: "b", ServerURL: "http://b", Token: "t"}))
	require.NoError(t, file.AddProfile(Profile{Name: "a", ServerURL: "http://a", Token: "t"}))

	require.NoError(t, file.RemoveProfile("b"))
	config, err := file.Load()
	require.NoError(t, err)
	assert.Equal(t, "a", config.DefaultProfile)

	_, err = file.Profile("missing")
	assert.Error(t, err)
}
