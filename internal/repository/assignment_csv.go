package repository

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/noah-isme/assignment-tracker/internal/models"
)

// Column names of the persisted file, in write order.
const (
	ColumnName        = "Name"
	ColumnCourse      = "Course"
	ColumnDueDate     = "Due_Date"
	ColumnTotalPoints = "Total_Points"
	ColumnStatus      = "Status"
	ColumnScore       = "Score"
)

// AssignmentColumns is the fixed header of the assignments file.
var AssignmentColumns = []string{ColumnName, ColumnCourse, ColumnDueDate, ColumnTotalPoints, ColumnStatus, ColumnScore}

// legacyNoScore is what older files wrote for submitted work.
const legacyNoScore = "N/A"

type skipFunc func(line int, reason string, record []string)

// decodeAssignments reads a header plus rows. Columns are located by header
// name so files written with a different column order still load.
func decodeAssignments(r io.Reader, onSkip skipFunc) ([]models.Assignment, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("read header: %w", err)
	}
	index, err := headerIndex(header)
	if err != nil {
		return nil, 0, err
	}

	var (
		out     []models.Assignment
		skipped int
		line    = 1
	)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				skipped++
				onSkip(line, parseErr.Err.Error(), record)
				continue
			}
			return nil, 0, fmt.Errorf("read row %d: %w", line, err)
		}
		a, reason := decodeRow(record, index)
		if reason != "" {
			skipped++
			onSkip(line, reason, record)
			continue
		}
		out = append(out, a)
	}
	return out, skipped, nil
}

func headerIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, col := range header {
		index[strings.TrimPrefix(strings.TrimSpace(col), "\ufeff")] = i
	}
	for _, col := range AssignmentColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("header missing column %q", col)
		}
	}
	return index, nil
}

func decodeRow(record []string, index map[string]int) (models.Assignment, string) {
	field := func(col string) string {
		i := index[col]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	if len(record) < len(AssignmentColumns) {
		return models.Assignment{}, "short row"
	}
	if field(ColumnName) == "" {
		return models.Assignment{}, "missing name"
	}
	if field(ColumnCourse) == "" {
		return models.Assignment{}, "missing course"
	}

	points, err := strconv.Atoi(field(ColumnTotalPoints))
	if err != nil || points < 1 {
		return models.Assignment{}, "invalid total points"
	}

	var score *float64
	if raw := field(ColumnScore); raw != "" && raw != legacyNoScore {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return models.Assignment{}, "invalid score"
		}
		score = &v
	}

	due, err := models.ParseDate(field(ColumnDueDate))
	if err != nil {
		return models.Assignment{}, "invalid due date"
	}

	status, ok := models.ParseStatus(field(ColumnStatus))
	if !ok {
		return models.Assignment{}, "invalid status"
	}

	return models.Assignment{
		Name:        field(ColumnName),
		Course:      field(ColumnCourse),
		DueDate:     due,
		TotalPoints: points,
		Status:      status,
		Score:       score,
	}, ""
}

func encodeAssignments(records []models.Assignment) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(AssignmentColumns); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for _, a := range records {
		row := []string{
			a.Name,
			a.Course,
			a.DueDateString(),
			strconv.Itoa(a.TotalPoints),
			string(a.Status),
			a.ScoreString(),
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("write row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// writeFileAtomic replaces path with data via a temp file and rename, so a
// failed write never truncates the previous file.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return nil
}
