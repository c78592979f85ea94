package model

type CreateEventResponse struct {
	ID uint64 `json:"id"`
}

type CheckInResponse struct {
	CheckedIn bool `json:"checked_in"`
}

type SupplyResponse struct {
	InitialSupply uint64 `json:"initial_supply"`
}

type OwnerResponse struct {
	Owner string `json:"owner"`
}

type FlagResponse struct {
	Value bool `json:"value"`
}
