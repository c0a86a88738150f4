package entity

// SeatInventory is a consistent snapshot of a screening's taken seats
type SeatInventory struct {
	Screening  *Screening
	Auditorium *Auditorium
	Taken      []Seat

	taken map[Seat]struct{}
}

// Version is the seat version the snapshot was read at
func (inv *SeatInventory) Version() int64 {
	return inv.Screening.SeatVersion
}

func (inv *SeatInventory) IsTaken(seat Seat) bool {
	if inv.taken == nil {
		inv.taken = make(map[Seat]struct{}, len(inv.Taken))
		for _, s := range inv.Taken {
			inv.taken[s] = struct{}{}
		}
	}
	_, ok := inv.taken[seat]
	return ok
}

// FirstConflict returns the first requested seat that is already taken
func (inv *SeatInventory) FirstConflict(requested []Seat) (Seat, bool) {
	for _, s := range requested {
		if inv.IsTaken(s) {
			return s, true
		}
	}
	return Seat{}, false
}
