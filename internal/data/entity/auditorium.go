package entity

// Auditorium has a rectangular layout: RowCount rows labelled A.. and SeatsPerRow seats numbered from 1
type Auditorium struct {
	Base
	Name        string `db:"name"`
	RowCount    int    `db:"row_count"`
	SeatsPerRow int    `db:"seats_per_row"`
}

func (a *Auditorium) Capacity() int {
	return a.RowCount * a.SeatsPerRow
}

func (a *Auditorium) Contains(seat Seat) bool {
	idx := RowIndex(seat.Row)
	return idx >= 0 && idx < a.RowCount && seat.Number >= 1 && seat.Number <= a.SeatsPerRow
}

// Layout lists every seat in row-major order
func (a *Auditorium) Layout() []Seat {
	seats := make([]Seat, 0, a.Capacity())
	for r := 0; r < a.RowCount; r++ {
		row := RowLabel(r)
		for n := 1; n <= a.SeatsPerRow; n++ {
			seats = append(seats, Seat{Row: row, Number: n})
		}
	}
	return seats
}
