package core

import (
	"strconv"
	"strings"
	"time"
)

// DiscInfo is the .discinfo file of installation media: a timestamp, a
// release description, the media arch and the disc numbers.
type DiscInfo struct {
	Timestamp   float64
	Description string
	Arch        string
	// DiscNumbers is empty for media holding every disc ("ALL").
	DiscNumbers []int
}

// Now sets the timestamp to the current time.
func (d *DiscInfo) Now() {
	d.Timestamp = float64(time.Now().UnixNano()) / float64(time.Second)
}

func (d *DiscInfo) All() bool { return len(d.DiscNumbers) == 0 }

func (d *DiscInfo) Validate() error {
	if d.Timestamp == 0 {
		return invalidf("discinfo: timestamp can not be empty")
	}
	if strings.TrimSpace(d.Description) == "" {
		return invalidf("discinfo: description can not be empty")
	}
	if strings.TrimSpace(d.Arch) == "" {
		return invalidf("discinfo: arch can not be empty")
	}
	for _, n := range d.DiscNumbers {
		if n < 1 {
			return invalidf("discinfo: invalid disc number: %d", n)
		}
	}
	return nil
}

// Encode returns the four .discinfo lines without a trailing newline.
func (d *DiscInfo) Encode() ([]byte, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	timestamp := strconv.FormatFloat(d.Timestamp, 'f', -1, 64)
	if !strings.Contains(timestamp, ".") {
		timestamp += ".0"
	}
	discs := "ALL"
	if !d.All() {
		numbers := make([]string, 0, len(d.DiscNumbers))
		for _, n := range d.DiscNumbers {
			numbers = append(numbers, strconv.Itoa(n))
		}
		discs = strings.Join(numbers, ",")
	}
	lines := []string{timestamp, strings.TrimSpace(d.Description), strings.TrimSpace(d.Arch), discs}
	return []byte(strings.Join(lines, "\n")), nil
}

// Decode replaces d with the content of data. A missing fourth line
// means every disc.
func (d *DiscInfo) Decode(data []byte) error {
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	if len(lines) < 3 {
		return invalidf("discinfo: expected at least 3 lines, got %d", len(lines))
	}
	out := DiscInfo{}
	timestamp, err := strconv.ParseFloat(lines[0], 64)
	if err != nil {
		return invalidf("discinfo: invalid timestamp %q", lines[0])
	}
	out.Timestamp = timestamp
	out.Description = strings.Trim(lines[1], `"'`)
	out.Arch = lines[2]
	if len(lines) >= 4 && lines[3] != "" && lines[3] != "ALL" {
		for _, item := range strings.Split(lines[3], ",") {
			n, err := strconv.Atoi(strings.TrimSpace(item))
			if err != nil {
				return invalidf("discinfo: invalid disc number %q", item)
			}
			out.DiscNumbers = append(out.DiscNumbers, n)
		}
	}
	if err := out.Validate(); err != nil {
		return err
	}
	*d = out
	return nil
}
