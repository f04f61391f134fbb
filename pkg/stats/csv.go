package stats

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
)

var csvHeader = []string{"seq", "nodes", "depth", "attempts", "ok", "errors"}

// CSVWriter writes one row per executed or shape-only query. Duplicates and
// generation failures have no row. Shape-only rows leave the outcome columns
// empty.
type CSVWriter struct {
	mu     sync.Mutex
	w      *csv.Writer
	closer io.Closer
	seq    int
	err    error
}

// NewCSVWriter writes the header to w.
func NewCSVWriter(w io.Writer) (*CSVWriter, error) {
	cw := &CSVWriter{w: csv.NewWriter(w)}
	if err := cw.write(csvHeader); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	return cw, nil
}

// CreateCSV truncates or creates path and writes the header.
func CreateCSV(path string) (*CSVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	cw, err := NewCSVWriter(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	cw.closer = f
	return cw, nil
}

func (c *CSVWriter) write(row []string) error {
	if err := c.w.Write(row); err != nil {
		return err
	}
	c.w.Flush()
	return c.w.Error()
}

func (c *CSVWriter) row(cols ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return
	}
	c.seq++
	c.err = c.write(append([]string{strconv.Itoa(c.seq)}, cols...))
}

func (c *CSVWriter) RecordTreeShape(nodeCount, depth int) {
	c.row(strconv.Itoa(nodeCount), strconv.Itoa(depth), "", "", "")
}

func (c *CSVWriter) RecordOutcome(o Observation) {
	if o.Result != ResultOK && o.Result != ResultError {
		return
	}
	c.row(
		strconv.Itoa(o.NodeCount),
		strconv.Itoa(o.Depth),
		strconv.Itoa(o.Attempts),
		strconv.FormatBool(o.Result == ResultOK),
		strconv.Itoa(o.Errors),
	)
}

// Err returns the first write error. Rows after it are dropped.
func (c *CSVWriter) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close closes the underlying file when CreateCSV opened it.
func (c *CSVWriter) Close() error {
	err := c.Err()
	if c.closer != nil {
		if cerr := c.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
