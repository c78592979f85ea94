package response

import (
	"encoding/json"
	"net/http"
)

type SuccessResponse struct {
	Data       interface{} `json:"data"`
	StatusCode int         `json:"-"`
}

func (r SuccessResponse) Send(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(r.StatusCode)
	json.NewEncoder(w).Encode(r)
}

func OK(data interface{}) SuccessResponse {
	return SuccessResponse{Data: data, StatusCode: http.StatusOK}
}

func Created(data interface{}) SuccessResponse {
	return SuccessResponse{Data: data, StatusCode: http.StatusCreated}
}
