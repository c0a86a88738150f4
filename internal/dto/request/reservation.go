package request

type SeatRequest struct {
	Row    string `json:"row" validate:"required,seatrow"`
	Number int    `json:"number" validate:"required,min=1,max=999"`
}

type ReserveSeatsRequest struct {
	Seats []SeatRequest `json:"seats" validate:"required,min=1,dive"`
}
