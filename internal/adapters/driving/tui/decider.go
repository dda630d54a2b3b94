package tui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/custodia-labs/lexrag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/lexrag/internal/core/ports/driving"
)

// Ensure Decider implements the interface.
var _ driving.Decider = (*Decider)(nil)

// pickFunc chooses collections interactively. It returns ErrPickerAborted
// when the user closes the picker.
type pickFunc func(ctx context.Context, title string, items, preselected []string) ([]string, error)

// Decider asks the person at the console for every router decision.
// On a terminal, collection selection uses the bubbletea picker; otherwise
// it falls back to numbered line input.
type Decider struct {
	in     *bufio.Reader
	out    io.Writer
	styles *styles.Styles
	pick   pickFunc
}

// NewDecider creates a console decider reading from in and writing to out.
func NewDecider(in io.Reader, out io.Writer) *Decider {
	d := &Decider{
		in:     bufio.NewReader(in),
		out:    out,
		styles: styles.DefaultStyles(),
	}
	if isTerminal(in) && isTerminal(out) {
		f := in.(*os.File)
		d.pick = func(ctx context.Context, title string, items, preselected []string) ([]string, error) {
			return runPicker(ctx, f, out, title, items, preselected, d.styles)
		}
	}
	return d
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func runPicker(
	ctx context.Context,
	in *os.File,
	out io.Writer,
	title string,
	items, preselected []string,
	s *styles.Styles,
) ([]string, error) {
	picker := NewPicker(title, items, preselected, s)
	prog := tea.NewProgram(picker, tea.WithContext(ctx), tea.WithInput(in), tea.WithOutput(out))
	if _, err := prog.Run(); err != nil {
		return nil, fmt.Errorf("collection picker: %w", err)
	}
	if !picker.Confirmed() {
		return nil, ErrPickerAborted
	}
	return picker.Selected(), nil
}

// readLine returns the next trimmed input line. io.EOF is returned only
// when no text was read.
func (d *Decider) readLine() (string, error) {
	line, err := d.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (d *Decider) printf(format string, args ...any) {
	fmt.Fprintf(d.out, format, args...)
}

// ApproveReshaped offers the rewritten question. End of input cancels.
func (d *Decider) ApproveReshaped(ctx context.Context, original, suggested string) (driving.ReshapeDecision, error) {
	d.printf("\n%s\n", d.styles.Heading.Render("=== Question Reshaping ==="))
	d.printf("Your question is related to legal matters, but it can be reshaped to better fit the available acts.\n")
	d.printf("\nOriginal question:  %s\n", original)
	d.printf("Suggested question: %s\n", d.styles.Suggested.Render(suggested))

	for {
		if err := ctx.Err(); err != nil {
			return driving.ReshapeDecision{}, err
		}
		d.printf("\n1. Use the suggested question\n2. Modify it further\n3. Cancel\nEnter choice (1/2/3): ")
		choice, err := d.readLine()
		if errors.Is(err, io.EOF) {
			return driving.ReshapeDecision{Choice: driving.ReshapeCancel}, nil
		}
		if err != nil {
			return driving.ReshapeDecision{}, err
		}

		switch choice {
		case "1":
			return driving.ReshapeDecision{Choice: driving.ReshapeAccept}, nil
		case "2":
			d.printf("Enter your modified question: ")
			edited, err := d.readLine()
			if errors.Is(err, io.EOF) {
				return driving.ReshapeDecision{Choice: driving.ReshapeCancel}, nil
			}
			if err != nil {
				return driving.ReshapeDecision{}, err
			}
			if edited == "" {
				d.printf("%s\n", d.styles.Warning.Render("No question entered. Please try again."))
				continue
			}
			return driving.ReshapeDecision{Choice: driving.ReshapeEdit, Question: edited}, nil
		case "3":
			return driving.ReshapeDecision{Choice: driving.ReshapeCancel}, nil
		default:
			d.printf("%s\n", d.styles.Warning.Render("Invalid choice. Please enter 1, 2, or 3."))
		}
	}
}

// ConfirmCollections asks y/n about the suggested collections.
func (d *Decider) ConfirmCollections(_ context.Context, suggested []string) (bool, error) {
	d.printf("\n%s\n", d.styles.Heading.Render("=== Collection Selection ==="))
	d.printf("Suggested collections: %s\n", strings.Join(suggested, ", "))
	d.printf("Proceed with these collections? (y/n): ")

	answer, err := d.readLine()
	if errors.Is(err, io.EOF) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes", nil
}

// SelectCollections lets the user choose from available. An aborted picker
// or end of input yields whatever was chosen so far.
func (d *Decider) SelectCollections(ctx context.Context, available []string) ([]string, error) {
	if d.pick != nil {
		selected, err := d.pick(ctx, "Select the relevant acts", available, nil)
		if errors.Is(err, ErrPickerAborted) {
			return nil, nil
		}
		return selected, err
	}
	return d.selectByNumber(ctx, available)
}

func (d *Decider) selectByNumber(ctx context.Context, available []string) ([]string, error) {
	d.printf("\nAvailable legal acts:\n")
	for i, c := range available {
		d.printf("%d. %s\n", i+1, c)
	}

	var selected []string
	seen := make(map[int]bool)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		d.printf("Select relevant acts by number (comma separated) or 'done': ")
		line, err := d.readLine()
		if errors.Is(err, io.EOF) {
			return selected, nil
		}
		if err != nil {
			return nil, err
		}
		if strings.EqualFold(line, "done") || line == "" {
			return selected, nil
		}

		nums, err := parseSelection(line, len(available))
		if err != nil {
			d.printf("%s\n", d.styles.Warning.Render("Invalid input: "+err.Error()))
			continue
		}
		for _, n := range nums {
			if !seen[n] {
				seen[n] = true
				selected = append(selected, available[n-1])
			}
		}
		d.printf("Selected so far: %s\n", strings.Join(selected, ", "))
	}
}

// parseSelection parses "1, 3" into 1-based indexes within [1, n].
func parseSelection(line string, n int) ([]int, error) {
	var out []int
	for _, part := range strings.Split(line, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", part)
		}
		if v < 1 || v > n {
			return nil, fmt.Errorf("%d is out of range 1-%d", v, n)
		}
		out = append(out, v)
	}
	return out, nil
}
