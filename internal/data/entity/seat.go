package entity

import "fmt"

// Seat identifies a seat by row label and number within an auditorium
type Seat struct {
	Row    string `db:"seat_row" json:"row"`
	Number int    `db:"seat_number" json:"number"`
}

func (s Seat) String() string {
	return fmt.Sprintf("%s%d", s.Row, s.Number)
}

// Less orders seats by row (shorter labels first, so Z < AA) then number
func (s Seat) Less(o Seat) bool {
	if len(s.Row) != len(o.Row) {
		return len(s.Row) < len(o.Row)
	}
	if s.Row != o.Row {
		return s.Row < o.Row
	}
	return s.Number < o.Number
}

// RowLabel converts a zero-based row index to its label: 0 -> A, 25 -> Z, 26 -> AA
func RowLabel(index int) string {
	if index < 0 {
		return ""
	}
	var label []byte
	for n := index + 1; n > 0; n = (n - 1) / 26 {
		label = append([]byte{byte('A' + (n-1)%26)}, label...)
	}
	return string(label)
}

// RowIndex is the inverse of RowLabel. It returns -1 for labels that are not uppercase letters.
func RowIndex(label string) int {
	if label == "" {
		return -1
	}
	n := 0
	for i := 0; i < len(label); i++ {
		c := label[i]
		if c < 'A' || c > 'Z' {
			return -1
		}
		n = n*26 + int(c-'A'+1)
	}
	return n - 1
}
