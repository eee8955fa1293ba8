package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	fieldYear = iota
	fieldMonth
	fieldDay
	fieldHour
	fieldMinute
	dateFieldCount
)

// dateInput edits a local date and time as YYYY-MM-DD HH:MM.
type dateInput struct {
	fields [dateFieldCount]textinput.Model
	focus  int
}

func newDateInput() dateInput {
	placeholders := [dateFieldCount]string{"YYYY", "MM", "DD", "hh", "mm"}
	charLimits := [dateFieldCount]int{4, 2, 2, 2, 2}

	var fields [dateFieldCount]textinput.Model
	for i := 0; i < dateFieldCount; i++ {
		ti := textinput.New()
		ti.Prompt = ""
		ti.Placeholder = placeholders[i]
		ti.CharLimit = charLimits[i]
		ti.Width = charLimits[i] + 1
		ti.Validate = func(s string) error {
			for _, r := range s {
				if !unicode.IsDigit(r) {
					return fmt.Errorf("digits only")
				}
			}
			return nil
		}
		fields[i] = ti
	}

	return dateInput{fields: fields}
}

func (d *dateInput) Focus() tea.Cmd {
	return d.focusField(0)
}

func (d *dateInput) Blur() {
	for i := range d.fields {
		d.fields[i].Blur()
	}
}

// SetTime fills every field from t in local time. A zero t clears them.
func (d *dateInput) SetTime(t time.Time) {
	if t.IsZero() {
		for i := range d.fields {
			d.fields[i].SetValue("")
		}
		return
	}
	t = t.Local()
	d.fields[fieldYear].SetValue(fmt.Sprintf("%04d", t.Year()))
	d.fields[fieldMonth].SetValue(fmt.Sprintf("%02d", int(t.Month())))
	d.fields[fieldDay].SetValue(fmt.Sprintf("%02d", t.Day()))
	d.fields[fieldHour].SetValue(fmt.Sprintf("%02d", t.Hour()))
	d.fields[fieldMinute].SetValue(fmt.Sprintf("%02d", t.Minute()))
}

// Value parses the fields in now's location. Year and month default to
// now's; the time defaults to 23:59.
func (d *dateInput) Value(now time.Time) (time.Time, error) {
	get := func(i int) string { return strings.TrimSpace(d.fields[i].Value()) }

	yyyy, mm, dd, hh, mi := get(fieldYear), get(fieldMonth), get(fieldDay), get(fieldHour), get(fieldMinute)
	if yyyy == "" {
		yyyy = fmt.Sprintf("%04d", now.Year())
	}
	if mm == "" {
		mm = fmt.Sprintf("%02d", int(now.Month()))
	}
	if dd == "" {
		return time.Time{}, fmt.Errorf("day is required")
	}
	if hh == "" && mi == "" {
		hh, mi = "23", "59"
	}
	if mi == "" {
		mi = "00"
	}
	if hh == "" {
		return time.Time{}, fmt.Errorf("hour is required")
	}

	stamp := fmt.Sprintf("%s-%s-%s %s:%s", yyyy, padLeft(mm, 2), padLeft(dd, 2), padLeft(hh, 2), padLeft(mi, 2))
	t, err := time.ParseInLocation("2006-01-02 15:04", stamp, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date: %s", stamp)
	}
	return t, nil
}

func padLeft(s string, length int) string {
	for len(s) < length {
		s = "0" + s
	}
	return s
}

func (d *dateInput) IsEmpty() bool {
	for i := range d.fields {
		if d.fields[i].Value() != "" {
			return false
		}
	}
	return true
}

func (d *dateInput) focusField(idx int) tea.Cmd {
	d.focus = idx
	var cmds []tea.Cmd
	for i := range d.fields {
		if i == idx {
			cmds = append(cmds, d.fields[i].Focus())
		} else {
			d.fields[i].Blur()
		}
	}
	return tea.Batch(cmds...)
}

// AtEnd reports whether the last field has focus.
func (d dateInput) AtEnd() bool { return d.focus == dateFieldCount-1 }

// AtStart reports whether the first field has focus.
func (d dateInput) AtStart() bool { return d.focus == 0 }

func (d dateInput) Update(msg tea.Msg) (dateInput, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "right":
			if d.focus < dateFieldCount-1 {
				cmd := d.focusField(d.focus + 1)
				return d, cmd
			}
			return d, nil
		case "left":
			if d.focus > 0 {
				cmd := d.focusField(d.focus - 1)
				return d, cmd
			}
			return d, nil
		case "up", "down":
			d.step(keyMsg.String() == "up")
			return d, nil
		}
	}

	var cmd tea.Cmd
	d.fields[d.focus], cmd = d.fields[d.focus].Update(msg)
	if len(d.fields[d.focus].Value()) == d.fields[d.focus].CharLimit && d.focus < dateFieldCount-1 {
		if km, ok := msg.(tea.KeyMsg); ok && km.Type == tea.KeyRunes {
			cmd = tea.Batch(cmd, d.focusField(d.focus+1))
		}
	}
	return d, cmd
}

// step increments or decrements the focused field, wrapping within its range.
func (d *dateInput) step(up bool) {
	limits := [dateFieldCount][2]int{{1970, 9999}, {1, 12}, {1, 31}, {0, 23}, {0, 59}}
	lo, hi := limits[d.focus][0], limits[d.focus][1]
	n, err := strconv.Atoi(d.fields[d.focus].Value())
	if err != nil {
		n = lo
		if d.focus == fieldYear {
			n = time.Now().Year()
		}
	} else if up {
		n++
	} else {
		n--
	}
	if n > hi {
		n = lo
	}
	if n < lo {
		n = hi
	}
	width := d.fields[d.focus].CharLimit
	d.fields[d.focus].SetValue(padLeft(strconv.Itoa(n), width))
}

func (d dateInput) View() string {
	return d.fields[fieldYear].View() + "-" + d.fields[fieldMonth].View() + "-" + d.fields[fieldDay].View() +
		"  " + d.fields[fieldHour].View() + ":" + d.fields[fieldMinute].View()
}
