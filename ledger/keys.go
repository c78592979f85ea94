package ledger

import "strconv"

const eventsList = "events"

func symbolKey(symbol string) string {
	return "symbol/" + symbol
}

func ticketKey(eventID uint64, account string) string {
	return "ticket/" + strconv.FormatUint(eventID, 10) + "/" + account
}

func attendeesList(eventID uint64) string {
	return "attendees/" + strconv.FormatUint(eventID, 10)
}

func escrowKey(grantor string) string {
	return "escrow/" + grantor
}
