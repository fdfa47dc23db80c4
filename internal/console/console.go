// Package console implements the interactive numbered menu on top of a storage.Repository.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"workerstore/internal/domain"
	"workerstore/internal/storage"
)

// Menu selections.
const (
	OptionExit        = 0
	OptionDisplay     = 1
	OptionAdd         = 2
	OptionListAll     = 3
	OptionDelete      = 4
	OptionListByRange = 5
)

// MaxLineLength caps a single line of input, in bytes.
const MaxLineLength = 4096

// User-facing messages.
const (
	MsgInvalidInput     = "Invalid input"
	MsgInvalidChoice    = "Invalid choice"
	MsgLineTooLong      = "Input line too long"
	MsgStoreNotFound    = "Store file does not exist"
	MsgNoRecords        = "No records found"
	MsgAdded            = "Record added successfully"
	MsgInvalidAge       = "Invalid age"
	MsgInvalidHeight    = "Invalid height"
	MsgInvalidBirthDate = "Invalid birth date"
	MsgInvalidID        = "Invalid ID"
	MsgInvalidFromDate  = "Invalid start date"
	MsgInvalidToDate    = "Invalid end date"
)

var (
	errInvalidValue = errors.New("invalid value")
	errLineTooLong  = errors.New("input line too long")
)

type inputLine struct {
	text string
	err  error
}

// Console drives the menu loop. It is not safe for concurrent use, and Run
// must be called at most once.
type Console struct {
	repo  storage.Repository
	in    *bufio.Reader
	out   io.Writer
	log   logrus.FieldLogger
	lines <-chan inputLine
}

// New creates a console reading selections from in and printing to out.
func New(repo storage.Repository, in io.Reader, out io.Writer, logger logrus.FieldLogger) *Console {
	return &Console{
		repo: repo,
		in:   bufio.NewReader(in),
		out:  out,
		log:  logger.WithField("component", "console"),
	}
}

// Run shows the menu until the user picks exit, input ends or ctx is cancelled.
// Each selected action runs to completion before the next prompt; once ctx is
// cancelled no further input is acted on, even if it was already typed.
func (c *Console) Run(ctx context.Context) error {
	if ctx.Err() != nil {
		return nil
	}

	done := make(chan struct{})
	defer close(done)
	c.lines = c.readLines(done)

	for {
		if ctx.Err() != nil {
			return nil
		}

		c.printMenu()
		line, err := c.readLine(ctx)
		switch {
		case err == nil:
		case errors.Is(err, errLineTooLong):
			c.println(MsgLineTooLong)
			continue
		case errors.Is(err, io.EOF), ctx.Err() != nil:
			return nil
		default:
			return err
		}

		choice, err := strconv.Atoi(line)
		if err != nil {
			c.println(MsgInvalidInput)
			continue
		}

		c.log.WithField("choice", choice).Debug("Menu option selected")
		switch choice {
		case OptionDisplay:
			c.displaySorted(ctx)
		case OptionAdd:
			c.addWorker(ctx)
		case OptionListAll:
			c.listAll(ctx)
		case OptionDelete:
			c.deleteWorker(ctx)
		case OptionListByRange:
			c.listByRange(ctx)
		case OptionExit:
			return nil
		default:
			c.println(MsgInvalidChoice)
		}
	}
}

// readLines pumps raw input lines into a channel so prompts can also wait on ctx.
// The channel is closed after the first read error, which is delivered last.
func (c *Console) readLines(done <-chan struct{}) <-chan inputLine {
	lines := make(chan inputLine)
	send := func(l inputLine) bool {
		select {
		case lines <- l:
			return true
		case <-done:
			return false
		}
	}

	go func() {
		defer close(lines)
		for {
			text, err := c.in.ReadString('\n')
			if text != "" && !send(inputLine{text: text}) {
				return
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					send(inputLine{err: err})
				}
				return
			}
		}
	}()
	return lines
}

func (c *Console) printMenu() {
	c.println("Choose an action:")
	c.println("1 - Display records sorted")
	c.println("2 - Add a new record")
	c.println("3 - List all records")
	c.println("4 - Delete a record by ID")
	c.println("5 - List records within a date range")
	c.println("0 - Exit")
}

func (c *Console) displaySorted(ctx context.Context) {
	c.println("Choose a sort field:")
	c.println("1 - By ID")
	c.println("2 - By date added")
	c.println("3 - By full name")

	field, err := c.promptInt(ctx, "")
	if err == nil && !domain.SortField(field).Valid() {
		err = errInvalidValue
	}
	if err != nil {
		c.abort(err, MsgInvalidChoice)
		return
	}

	workers, err := c.repo.ListAll(ctx)
	if err != nil {
		c.reportError(err)
		return
	}
	domain.SortWorkers(workers, domain.SortField(field))
	c.printWorkers(workers)
}

func (c *Console) addWorker(ctx context.Context) {
	c.println("Enter the new worker's details:")

	fullName, err := c.prompt(ctx, "Full name: ")
	if err != nil {
		c.abort(err, "")
		return
	}
	age, err := c.promptInt(ctx, "Age: ")
	if err != nil {
		c.abort(err, MsgInvalidAge)
		return
	}
	height, err := c.promptInt(ctx, "Height: ")
	if err != nil {
		c.abort(err, MsgInvalidHeight)
		return
	}
	birthDate, err := c.promptDate(ctx, "Birth date (DD.MM.YYYY): ")
	if err != nil {
		c.abort(err, MsgInvalidBirthDate)
		return
	}
	birthPlace, err := c.prompt(ctx, "Birth place: ")
	if err != nil {
		c.abort(err, "")
		return
	}

	w, err := c.repo.Add(ctx, domain.Worker{
		FullName:   fullName,
		Age:        age,
		Height:     height,
		BirthDate:  birthDate,
		BirthPlace: birthPlace,
	})
	if err != nil {
		c.reportError(err)
		return
	}
	c.println(MsgAdded)
	c.log.WithField("worker_id", w.ID).Debug("Record added from console")
}

func (c *Console) listAll(ctx context.Context) {
	workers, err := c.repo.ListAll(ctx)
	if err != nil {
		c.reportError(err)
		return
	}
	c.printWorkers(workers)
}

func (c *Console) deleteWorker(ctx context.Context) {
	id, err := c.promptInt(ctx, "Enter the ID of the record to delete: ")
	if err != nil {
		c.abort(err, MsgInvalidID)
		return
	}

	removed, err := c.repo.Delete(ctx, id)
	if err != nil {
		c.reportError(err)
		return
	}
	if removed {
		c.printf("Record with ID %d deleted\n", id)
	} else {
		c.printf("Record with ID %d not found\n", id)
	}
}

func (c *Console) listByRange(ctx context.Context) {
	from, err := c.promptDate(ctx, "Enter the start date (DD.MM.YYYY): ")
	if err != nil {
		c.abort(err, MsgInvalidFromDate)
		return
	}
	toDay, err := c.promptDate(ctx, "Enter the end date (DD.MM.YYYY): ")
	if err != nil {
		c.abort(err, MsgInvalidToDate)
		return
	}

	workers, err := c.repo.ListBetween(ctx, from, EndOfDay(toDay))
	if err != nil {
		c.reportError(err)
		return
	}
	c.printWorkers(workers)
}

// EndOfDay returns the last instant of the calendar day starting at day.
func EndOfDay(day time.Time) time.Time {
	return day.AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// abort explains why a prompt stopped an action. Closed input and
// cancellation stop it silently.
func (c *Console) abort(err error, invalidMsg string) {
	switch {
	case errors.Is(err, errLineTooLong):
		c.println(MsgLineTooLong)
	case errors.Is(err, errInvalidValue):
		c.println(invalidMsg)
	case errors.Is(err, io.EOF), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
	default:
		c.log.WithError(err).Error("Failed to read input")
	}
}

func (c *Console) reportError(err error) {
	if errors.Is(err, storage.ErrStoreNotFound) {
		c.println(MsgStoreNotFound)
		return
	}
	c.log.WithError(err).Error("Operation failed")
	c.printf("Error: %v\n", err)
}

func (c *Console) printWorkers(workers []domain.Worker) {
	if len(workers) == 0 {
		c.println(MsgNoRecords)
		return
	}
	for _, w := range workers {
		c.println(FormatWorker(w))
	}
}

// FormatWorker renders one worker as a display line.
func FormatWorker(w domain.Worker) string {
	return fmt.Sprintf("ID: %d, Added: %s, Full name: %s, Age: %d, Height: %d, Birth date: %s, Birth place: %s",
		w.ID,
		w.AddedAt.Format(storage.AddedAtLayout),
		w.FullName,
		w.Age,
		w.Height,
		w.BirthDate.Format(storage.DateLayout),
		w.BirthPlace,
	)
}

// readLine returns the next input line without surrounding whitespace.
// It returns io.EOF once input is exhausted and ctx.Err() once ctx is done,
// discarding a line that raced with cancellation.
func (c *Console) readLine(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case l, ok := <-c.lines:
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !ok {
			return "", io.EOF
		}
		if l.err != nil {
			return "", l.err
		}
		text := strings.TrimRight(l.text, "\r\n")
		if len(text) > MaxLineLength {
			return "", errLineTooLong
		}
		return strings.TrimSpace(text), nil
	}
}

func (c *Console) prompt(ctx context.Context, label string) (string, error) {
	if label != "" {
		fmt.Fprint(c.out, label)
	}
	return c.readLine(ctx)
}

func (c *Console) promptInt(ctx context.Context, label string) (int, error) {
	line, err := c.prompt(ctx, label)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(line)
	if err != nil {
		return 0, errInvalidValue
	}
	return n, nil
}

func (c *Console) promptDate(ctx context.Context, label string) (time.Time, error) {
	line, err := c.prompt(ctx, label)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.ParseInLocation(storage.DateLayout, line, time.Local)
	if err != nil {
		return time.Time{}, errInvalidValue
	}
	return t, nil
}

func (c *Console) println(s string) {
	fmt.Fprintln(c.out, s)
}

func (c *Console) printf(format string, args ...interface{}) {
	fmt.Fprintf(c.out, format, args...)
}
