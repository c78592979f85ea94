package model

type CreateEventRequest struct {
	Data struct {
		Name          string `json:"name" validate:"required"`
		Symbol        string `json:"symbol" validate:"required"`
		SeatPrice     uint64 `json:"seat_price"`
		Start         uint64 `json:"start"`
		End           uint64 `json:"end" validate:"gtefield=Start"`
		InitialSupply uint64 `json:"initial_supply"`
	} `json:"data"`
}

type PurchaseRequest struct {
	Data struct {
		AttachedDeposit uint64 `json:"attached_deposit"`
	} `json:"data"`
}

type TransferRequest struct {
	Data struct {
		NewOwnerID string `json:"new_owner_id" validate:"required"`
	} `json:"data"`
}

type TransferFromRequest struct {
	Data struct {
		OwnerID    string `json:"owner_id" validate:"required"`
		NewOwnerID string `json:"new_owner_id" validate:"required"`
	} `json:"data"`
}

type SupplyRequest struct {
	Data struct {
		Amount uint64 `json:"amount"`
	} `json:"data"`
}

type EscrowRequest struct {
	Data struct {
		Grantee string `json:"grantee" validate:"required"`
	} `json:"data"`
}
