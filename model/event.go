package model

// Event is a hosted occasion with a fixed seat price, supply and time window.
// Attendees is materialized from the attendee list on reads and is not part of
// the stored record.
type Event struct {
	ID            uint64   `json:"id" cbor:"1,keyasint"`
	Host          string   `json:"host" cbor:"2,keyasint"`
	Name          string   `json:"name" cbor:"3,keyasint"`
	Symbol        string   `json:"symbol" cbor:"4,keyasint"`
	Occupied      uint64   `json:"occupied" cbor:"5,keyasint"`
	SeatPrice     uint64   `json:"seat_price" cbor:"6,keyasint"`
	Start         uint64   `json:"start" cbor:"7,keyasint"`
	End           uint64   `json:"end" cbor:"8,keyasint"`
	InitialSupply uint64   `json:"initial_supply" cbor:"9,keyasint"`
	Attendees     []string `json:"attendees" cbor:"-"`
}

// Ticket is the seat ownership record for one account within one event.
type Ticket struct {
	EventID     uint64 `json:"event_id" cbor:"1,keyasint"`
	Seat        uint64 `json:"seat" cbor:"2,keyasint"`
	Owner       string `json:"owner" cbor:"3,keyasint"`
	Price       uint64 `json:"price" cbor:"4,keyasint"`
	PurchasedAt uint64 `json:"purchased_at" cbor:"5,keyasint"`
	CheckIn     bool   `json:"check_in" cbor:"6,keyasint"`
	CheckInAt   uint64 `json:"check_in_at,omitempty" cbor:"7,keyasint,omitempty"`
}

// EscrowGrant delegates transfer authority over all of Grantor's tickets to Grantee.
type EscrowGrant struct {
	Grantor   string `json:"grantor" cbor:"1,keyasint"`
	Grantee   string `json:"grantee" cbor:"2,keyasint"`
	GrantedAt uint64 `json:"granted_at" cbor:"3,keyasint"`
}
