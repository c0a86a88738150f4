package notify

import (
	"bytes"
	"html/template"
	"strings"
)

var confirmationTmpl = template.Must(template.New("confirmation").Parse(`<html><body>
<h2>Your reservation is confirmed</h2>
<p>Hi {{.Username}},</p>
<p>Reservation code: <strong>{{.Event.Code}}</strong></p>
<p>Screening starts at {{.StartsAt}}</p>
<p>Seats: {{.Seats}}</p>
<p>Total: {{printf "%.2f" .Event.TotalPrice}}</p>
<p>Show the QR code from your ticket page at the entrance.</p>
</body></html>`))

var cancellationTmpl = template.Must(template.New("cancellation").Parse(`<html><body>
<h2>Your reservation was cancelled</h2>
<p>Hi {{.Username}},</p>
<p>Reservation <strong>{{.Event.Code}}</strong> for the screening at {{.StartsAt}} has been cancelled.</p>
<p>Released seats: {{.Seats}}</p>
</body></html>`))

type mailData struct {
	Username string
	Event    ReservationEvent
	StartsAt string
	Seats    string
}

func render(tmpl *template.Template, username string, ev ReservationEvent) (string, error) {
	labels := make([]string, len(ev.Seats))
	for i, s := range ev.Seats {
		labels[i] = s.String()
	}

	var buf bytes.Buffer
	err := tmpl.Execute(&buf, mailData{
		Username: username,
		Event:    ev,
		StartsAt: ev.StartsAt.Format("Mon, 02 Jan 2006 15:04 MST"),
		Seats:    strings.Join(labels, ", "),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
