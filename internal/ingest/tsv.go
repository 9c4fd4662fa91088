package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	apperrors "github.com/truthengine/backend-go/internal/errors"
)

// 数据集列名
const (
	colNoteID        = "noteId"
	colSummary       = "summary"
	colTweetID       = "tweetId"
	colCurrentStatus = "currentStatus"
)

// NoteRow 笔记文件中的一行
type NoteRow struct {
	NoteID  int64
	Summary string
	TweetID *int64
}

// ReadStats 读取与过滤的计数
type ReadStats struct {
	Read       int
	Helpful    int
	Filtered   int
	Blank      int
	Duplicates int
}

// tsvFile 带表头的制表符分隔文件
type tsvFile struct {
	path    string
	file    *os.File
	reader  *csv.Reader
	columns map[string]int
	line    int
}

func openTSV(path string, required ...string) (*tsvFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewInputFileError(path, "cannot open file", err)
	}

	r := csv.NewReader(f)
	r.Comma = '\t'
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	r.ReuseRecord = true

	header, err := r.Read()
	if err != nil {
		f.Close()
		if errors.Is(err, io.EOF) {
			return nil, apperrors.NewInputFileError(path, "missing header row", nil)
		}
		return nil, apperrors.NewInputFileError(path, "cannot read header row", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, name := range required {
		if _, ok := columns[name]; !ok {
			f.Close()
			return nil, apperrors.NewInputFileError(path, fmt.Sprintf("missing column %s", name), nil)
		}
	}

	return &tsvFile{path: path, file: f, reader: r, columns: columns, line: 1}, nil
}

// next 返回下一行，结束时返回 io.EOF
func (t *tsvFile) next() ([]string, error) {
	record, err := t.reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	t.line++
	if err != nil {
		return nil, apperrors.NewInputFileError(t.path, fmt.Sprintf("line %d is malformed", t.line), err)
	}
	return record, nil
}

// field 取列值，列缺失的短行返回空串
func (t *tsvFile) field(record []string, name string) (string, bool) {
	idx, ok := t.columns[name]
	if !ok || idx >= len(record) {
		return "", false
	}
	return record[idx], true
}

func (t *tsvFile) noteID(record []string) (int64, error) {
	raw, ok := t.field(record, colNoteID)
	if !ok {
		return 0, apperrors.NewInputFileError(t.path, fmt.Sprintf("line %d has no %s", t.line, colNoteID), nil)
	}
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, apperrors.NewInputFileError(t.path, fmt.Sprintf("line %d has invalid %s %q", t.line, colNoteID, raw), err)
	}
	return id, nil
}

func (t *tsvFile) Close() error {
	return t.file.Close()
}

// ReadHelpfulNoteIDs 读取状态文件，返回当前状态等于 helpfulStatus 的笔记 ID。
// 同一笔记出现多行时，任意一行满足即视为有用。
func ReadHelpfulNoteIDs(path, helpfulStatus string) (map[int64]struct{}, error) {
	t, err := openTSV(path, colNoteID, colCurrentStatus)
	if err != nil {
		return nil, err
	}
	defer t.Close()

	helpful := make(map[int64]struct{})
	for {
		record, err := t.next()
		if errors.Is(err, io.EOF) {
			return helpful, nil
		}
		if err != nil {
			return nil, err
		}

		id, err := t.noteID(record)
		if err != nil {
			return nil, err
		}
		if status, _ := t.field(record, colCurrentStatus); strings.TrimSpace(status) == helpfulStatus {
			helpful[id] = struct{}{}
		}
	}
}

// ReadHelpfulNotes 读取笔记文件并与 helpful 做内连接。
// 重复的 noteId 保留首次出现的位置和最后一次出现的内容。
// 摘要为空白的行不参与嵌入，计入 Blank。
func ReadHelpfulNotes(path string, helpful map[int64]struct{}) ([]NoteRow, ReadStats, error) {
	var stats ReadStats

	t, err := openTSV(path, colNoteID, colSummary)
	if err != nil {
		return nil, stats, err
	}
	defer t.Close()

	var rows []NoteRow
	positions := make(map[int64]int)
	for {
		record, err := t.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, stats, err
		}
		stats.Read++

		id, err := t.noteID(record)
		if err != nil {
			return nil, stats, err
		}
		if _, ok := helpful[id]; !ok {
			stats.Filtered++
			continue
		}

		summary, _ := t.field(record, colSummary)
		if strings.TrimSpace(summary) == "" {
			stats.Blank++
			continue
		}
		row := NoteRow{NoteID: id, Summary: summary, TweetID: t.tweetID(record)}

		if pos, seen := positions[id]; seen {
			rows[pos] = row
			stats.Duplicates++
			continue
		}
		positions[id] = len(rows)
		rows = append(rows, row)
	}

	stats.Helpful = len(rows)
	return rows, stats, nil
}

// tweetID 可选列，缺失或无法解析时为 nil
func (t *tsvFile) tweetID(record []string) *int64 {
	raw, ok := t.field(record, colTweetID)
	if !ok {
		return nil
	}
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return nil
	}
	return &id
}
