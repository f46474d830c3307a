// Package cli drives the interactive assignment tracker menu.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/assignment-tracker/internal/models"
	"github.com/noah-isme/assignment-tracker/internal/service"
	appErrors "github.com/noah-isme/assignment-tracker/pkg/errors"
)

// Menu choices.
const (
	ChoiceAdd      = "1"
	ChoiceUpdate   = "2"
	ChoiceList     = "3"
	ChoiceFilter   = "4"
	ChoicePriority = "5"
	ChoiceExit     = "6"
)

type assignmentOperations interface {
	Add(ctx context.Context, req service.AddAssignmentRequest) (*models.Assignment, error)
	Update(ctx context.Context, index int, status, score string) (*models.Assignment, error)
	List(ctx context.Context, predicate models.AssignmentPredicate) []models.Assignment
	FilterByCourse(ctx context.Context, course string) []models.Assignment
	FilterByStatus(ctx context.Context, status string) ([]models.Assignment, error)
	PriorityView(ctx context.Context, today time.Time) []models.Assignment
	PriorityWindowDays() int
	Summary(ctx context.Context) models.AssignmentSummary
}

type saver interface {
	Save(ctx context.Context) error
}

// Menu is the interactive front end over the assignment operations.
type Menu struct {
	ops    assignmentOperations
	store  saver
	in     *bufio.Scanner
	lines  <-chan string
	out    io.Writer
	now    func() time.Time
	logger *zap.Logger
}

// NewMenu builds a menu reading from in and writing to out.
func NewMenu(ops assignmentOperations, store saver, in io.Reader, out io.Writer, logger *zap.Logger) *Menu {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Menu{
		ops:    ops,
		store:  store,
		in:     bufio.NewScanner(in),
		out:    out,
		now:    time.Now,
		logger: logger,
	}
}

// Run loops until the user exits, input ends or ctx is cancelled, then saves
// exactly once. The returned error is the save failure, if any; it has already
// been shown.
func (m *Menu) Run(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	m.lines = m.readLines(done)

	for {
		choice, ok := m.mainMenu(ctx)
		if !ok {
			m.println()
			if ctx.Err() != nil {
				m.println("Interrupted, saving before exit.")
			}
			return m.exit(ctx)
		}
		switch choice {
		case ChoiceAdd:
			m.add(ctx)
		case ChoiceUpdate:
			m.update(ctx)
		case ChoiceList:
			m.display(m.ops.List(ctx, nil), "ALL ASSIGNMENTS", false)
		case ChoiceFilter:
			m.filter(ctx)
		case ChoicePriority:
			m.priority(ctx)
		case ChoiceExit:
			return m.exit(ctx)
		default:
			m.println("Invalid choice. Please enter a number between 1 and 6.")
		}
	}
}

func (m *Menu) mainMenu(ctx context.Context) (string, bool) {
	summary := m.ops.Summary(ctx)
	m.println()
	m.println()
	m.println("--- STUDENT ASSIGNMENT TRACKER ---")
	m.printf("%d assignments: %d pending, %d submitted, %d graded\n", summary.Total, summary.Pending, summary.Submitted, summary.Graded)
	m.println("1. Add New Assignment")
	m.println("2. Update Assignment Status/Score")
	m.println("3. View All Assignments")
	m.println("4. Filter Assignments")
	m.println("5. Priority View (Due Soon)")
	m.println("6. Exit & Save")
	return m.prompt(ctx, "Enter your choice (1-6): ")
}

// exit saves even when ctx was cancelled by an interrupt.
func (m *Menu) exit(ctx context.Context) error {
	if err := m.store.Save(context.WithoutCancel(ctx)); err != nil {
		m.logger.Warn("save failed", zap.Error(err))
		m.printf("\nWarning: could not save assignments: %v\n", err)
		return err
	}
	m.println("\nData saved successfully.")
	m.println("Thank you for using the tracker. Goodbye!")
	return nil
}

func (m *Menu) add(ctx context.Context) {
	m.println("\n--- ADD NEW ASSIGNMENT ---")
	name, ok := m.promptRequired(ctx, "Assignment Name: ", "Assignment name cannot be empty.")
	if !ok {
		return
	}
	course, ok := m.promptRequired(ctx, "Course Name: ", "Course name cannot be empty.")
	if !ok {
		return
	}
	due, ok := m.promptValid(ctx, "Due Date (YYYY-MM-DD): ", func(raw string) error {
		_, err := service.ParseDueDate(raw)
		return err
	})
	if !ok {
		return
	}
	points, ok := m.promptValid(ctx, "Total Points: ", func(raw string) error {
		_, err := service.ParseTotalPoints(raw)
		return err
	})
	if !ok {
		return
	}

	created, err := m.ops.Add(ctx, service.AddAssignmentRequest{Name: name, Course: course, DueDate: due, TotalPoints: points})
	if err != nil {
		m.printError(err)
		return
	}
	m.printf("\n[CONFIRMATION] Assignment '%s' successfully added.\n", created.Name)
}

func (m *Menu) update(ctx context.Context) {
	items := m.ops.List(ctx, nil)
	m.display(items, "ALL ASSIGNMENTS", true)
	if len(items) == 0 {
		return
	}

	raw, ok := m.prompt(ctx, "\nEnter the number of the assignment to UPDATE: ")
	if !ok {
		return
	}
	number, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		m.println("Invalid input. Please enter a number.")
		return
	}
	index := number - 1
	if index < 0 || index >= len(items) {
		m.println("Invalid selection number.")
		return
	}
	target := items[index]

	rawStatus, ok := m.prompt(ctx, "New Status (Pending/Submitted/Graded): ")
	if !ok {
		return
	}
	status, err := service.ParseStatus(rawStatus)
	if err != nil {
		m.printError(err)
		return
	}

	var score string
	if status == models.StatusGraded {
		score, ok = m.promptValid(ctx, fmt.Sprintf("Enter Score received (out of %d): ", target.TotalPoints), func(raw string) error {
			_, err := service.ParseScore(raw, target.TotalPoints)
			return err
		})
		if !ok {
			return
		}
	}

	updated, err := m.ops.Update(ctx, index, string(status), score)
	if err != nil {
		if appErrors.IsCode(err, appErrors.ErrNotFound.Code) {
			m.println("Invalid selection number.")
			return
		}
		m.printError(err)
		return
	}
	m.printf("\n[CONFIRMATION] Assignment '%s' updated.\n", updated.Name)
}

func (m *Menu) filter(ctx context.Context) {
	m.println("\n--- FILTER ASSIGNMENTS ---")
	by, ok := m.prompt(ctx, "Filter by (C)ourse or (S)tatus? ")
	if !ok {
		return
	}
	switch strings.ToUpper(strings.TrimSpace(by)) {
	case "C":
		course, ok := m.prompt(ctx, "Enter Course Name to filter: ")
		if !ok {
			return
		}
		course = strings.TrimSpace(course)
		m.display(m.ops.FilterByCourse(ctx, course), "ASSIGNMENTS FOR COURSE: "+course, false)
	case "S":
		raw, ok := m.prompt(ctx, "Enter Status (Pending/Submitted/Graded): ")
		if !ok {
			return
		}
		items, err := m.ops.FilterByStatus(ctx, raw)
		if err != nil {
			m.printError(err)
			return
		}
		status, _ := models.ParseStatus(raw)
		m.display(items, "ASSIGNMENTS WITH STATUS: "+string(status), false)
	default:
		m.println("Invalid filter option.")
	}
}

func (m *Menu) priority(ctx context.Context) {
	items := m.ops.PriorityView(ctx, m.now())
	m.display(items, fmt.Sprintf("PRIORITY VIEW (Due in next %d days)", m.ops.PriorityWindowDays()), false)
}

func (m *Menu) display(items []models.Assignment, title string, showIndex bool) {
	m.printf("\n--- %s ---\n", title)
	if len(items) == 0 {
		m.println("No assignments found.")
		return
	}
	m.out.Write([]byte(FormatTable(items, showIndex))) //nolint:errcheck
}

// FormatTable renders assignments as fixed-width console columns.
func FormatTable(items []models.Assignment, showIndex bool) string {
	var b strings.Builder
	indexHeader := ""
	if showIndex {
		indexHeader = fmt.Sprintf("%-4s", "#")
	}
	fmt.Fprintf(&b, "%s%-30s %-15s %-12s %-10s %-10s\n", indexHeader, service.HeaderName, service.HeaderCourse, service.HeaderDueDate, service.HeaderStatus, service.HeaderScore)
	b.WriteString(strings.Repeat("-", len(indexHeader)+81) + "\n")
	for i, a := range items {
		index := ""
		if showIndex {
			index = fmt.Sprintf("%-4d", i+1)
		}
		fmt.Fprintf(&b, "%s%-30s %-15s %-12s %-10s %-10s\n", index, clip(a.Name, 30), clip(a.Course, 15), a.DueDateString(), a.Status, service.DisplayScore(a))
	}
	return b.String()
}

func clip(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "~"
}

// readLines feeds stdin lines to prompts so a blocked read never hides a
// cancelled context.
func (m *Menu) readLines(done <-chan struct{}) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		for m.in.Scan() {
			select {
			case lines <- m.in.Text():
			case <-done:
				return
			}
		}
	}()
	return lines
}

// prompt reports false once input has ended or ctx is done.
func (m *Menu) prompt(ctx context.Context, label string) (string, bool) {
	m.printf("%s", label)
	if ctx.Err() != nil {
		return "", false
	}
	select {
	case <-ctx.Done():
		return "", false
	case line, ok := <-m.lines:
		return line, ok
	}
}

func (m *Menu) promptRequired(ctx context.Context, label, emptyMsg string) (string, bool) {
	for {
		raw, ok := m.prompt(ctx, label)
		if !ok {
			return "", false
		}
		if v := strings.TrimSpace(raw); v != "" {
			return v, true
		}
		m.println(emptyMsg)
	}
}

// promptValid re-prompts until check accepts the input or input ends.
func (m *Menu) promptValid(ctx context.Context, label string, check func(string) error) (string, bool) {
	for {
		raw, ok := m.prompt(ctx, label)
		if !ok {
			return "", false
		}
		if err := check(raw); err != nil {
			m.printError(err)
			continue
		}
		return strings.TrimSpace(raw), true
	}
}

func (m *Menu) printError(err error) {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) && appErr.Code == appErrors.ErrValidation.Code {
		m.printf("Invalid input: %s.\n", appErr.Message)
		return
	}
	m.logger.Error("operation failed", zap.Error(err))
	m.printf("Error: %v\n", err)
}

func (m *Menu) println(a ...interface{}) {
	fmt.Fprintln(m.out, a...) //nolint:errcheck
}

func (m *Menu) printf(format string, a ...interface{}) {
	fmt.Fprintf(m.out, format, a...) //nolint:errcheck
}
