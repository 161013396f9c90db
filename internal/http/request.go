package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"cashbook/internal/core"
)

const maxBodyBytes = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

// validateRequest runs the struct tags of v. It returns nil when v is valid.
func validateRequest(v any) []fieldError {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []fieldError{{Message: err.Error(), Type: "invalid"}}
	}
	out := make([]fieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fieldError{Field: fe.Field(), Message: fieldMessage(fe), Type: fe.Tag()})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "max":
		return "Value is too long"
	case "gte":
		return "Value must be greater than or equal to " + fe.Param()
	default:
		return "Invalid value"
	}
}

// decodeJSON reads a JSON body of at most maxBodyBytes into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body required")
		}
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// bind decodes and validates a request body, answering the client itself
// when either step fails.
func bind(w http.ResponseWriter, r *http.Request, v any, invalidStatus int) bool {
	if err := decodeJSON(w, r, v); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return false
	}
	if errs := validateRequest(v); errs != nil {
		WriteJSON(w, invalidStatus, errorResponse{Error: "Invalid request data", Details: errs})
		return false
	}
	return true
}

// amount accepts a JSON number or a decimal string.
type amount string

func (a *amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = amount(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("value must be a number or a decimal string")
	}
	*a = amount(n.String())
	return nil
}

type accountRequest struct {
	Type   string `json:"type" validate:"required"`
	Number string `json:"number" validate:"required,max=20"`
	Name   string `json:"name" validate:"required,max=200"`
}

func (req accountRequest) toAccount() (core.Account, error) {
	t, err := core.ParseAccountType(req.Type)
	if err != nil {
		return core.Account{}, err
	}
	return core.Account{Type: t, Number: req.Number, Name: req.Name}, nil
}

type transactionRequest struct {
	AccountID   string `json:"accountId" validate:"max=64"`
	Value       amount `json:"value" validate:"required"`
	Type        string `json:"type" validate:"required"`
	Date        string `json:"date" validate:"required"`
	CheckNumber string `json:"checkNumber" validate:"max=32"`
	PaidTo      string `json:"paidTo" validate:"max=200"`
}

// toTransaction parses the request. An empty paidTo is left for the ledger
// to reject so every entry point reports it the same way.
func (req transactionRequest) toTransaction() (core.Transaction, error) {
	value, err := core.ParseAmount(string(req.Value))
	if err != nil {
		return core.Transaction{}, err
	}
	t, err := core.ParseTransactionType(req.Type)
	if err != nil {
		return core.Transaction{}, err
	}
	date, err := core.ParseDate(req.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		AccountID:   req.AccountID,
		Value:       value,
		Type:        t,
		Date:        date,
		CheckNumber: req.CheckNumber,
		PaidTo:      req.PaidTo,
	}, nil
}

type credentialRequest struct {
	AccessToken string `json:"accessToken" validate:"required,max=4096"`
	// ExpiresIn is the token lifetime in seconds, as returned by Google.
	ExpiresIn int64 `json:"expiresIn" validate:"gte=0"`
}

type copyFileRequest struct {
	DestinationFolderID string `json:"destinationFolderId" validate:"max=128"`
	FileName            string `json:"fileName" validate:"max=200"`
	Email               string `json:"email" validate:"required,email"`
	AccessToken         string `json:"accessToken"`
}

type updateValuesRequest struct {
	Values      json.RawMessage `json:"values"`
	AccessToken string          `json:"accessToken"`
}

// rows parses values as a two-dimensional array.
func (req updateValuesRequest) rows() ([][]any, error) {
	var raw []json.RawMessage
	if len(req.Values) == 0 || json.Unmarshal(req.Values, &raw) != nil || raw == nil {
		return nil, errors.New("values must be an array")
	}
	rows := make([][]any, 0, len(raw))
	for _, r := range raw {
		dec := json.NewDecoder(bytes.NewReader(r))
		dec.UseNumber()
		var row []any
		if err := dec.Decode(&row); err != nil {
			return nil, errors.New("values must be an array of rows")
		}
		rows = append(rows, row)
	}
	return rows, nil
}
