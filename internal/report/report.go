// Package report writes prediction results as tab-separated tables and
// summarizes them.
package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Benny93/pfis-go/internal/predict"
)

// AllFile is the log every saved table is appended to.
const AllFile = "all.txt"

// TimestampLayout is the layout of the Timestamp column.
const TimestampLayout = "2006-01-02 15:04:05.999999999"

var columns = []string{
	"Prediction",
	"Timestamp",
	"Rank",
	"Out of",
	"No. of Ties",
	"From loc",
	"To loc",
	"Top predictions",
}

// Header returns the header row, without a line break.
func Header() string {
	return strings.Join(columns, "\t")
}

// Row formats one prediction, without a line break.
func Row(p predict.Prediction) string {
	return strings.Join([]string{
		strconv.Itoa(p.NavIndex),
		p.Timestamp.Format(TimestampLayout),
		strconv.Itoa(p.Rank),
		strconv.Itoa(p.PoolSize),
		strconv.Itoa(p.TieCount),
		p.From,
		p.To,
		"[" + strings.Join(p.TopPredictions, ", ") + "]",
	}, "\t")
}

// Write writes the header and one row per prediction to w.
func Write(w io.Writer, predictions []predict.Prediction) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, Header()); err != nil {
		return err
	}
	for _, p := range predictions {
		if _, err := fmt.Fprintln(bw, Row(p)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Save writes the table of one algorithm to dir/fileName, replacing any
// previous content, and appends it under the algorithm name to dir/all.txt.
func Save(dir, algorithm, fileName string, predictions []predict.Prediction) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	if err := writeFile(filepath.Join(dir, fileName), predictions); err != nil {
		return err
	}

	all, err := os.OpenFile(filepath.Join(dir, AllFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", AllFile, err)
	}
	defer func() { _ = all.Close() }()

	if _, err := fmt.Fprintf(all, "\n%s\n", algorithm); err != nil {
		return fmt.Errorf("appending to %s: %w", AllFile, err)
	}
	if err := Write(all, predictions); err != nil {
		return fmt.Errorf("appending to %s: %w", AllFile, err)
	}
	return all.Close()
}

func writeFile(path string, predictions []predict.Prediction) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	if err := Write(f, predictions); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
