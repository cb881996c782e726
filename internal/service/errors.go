package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"

	"github.com/wm2snap/migrator/internal/client"
	"github.com/wm2snap/migrator/internal/config"
	"github.com/wm2snap/migrator/internal/store"
)

const (
	MsgMissingFile        = "Please upload a ZIP file."
	MsgInvalidFileType    = "Invalid file type. Please upload a ZIP file."
	MsgFileTooLarge       = "File too large. Maximum size is 100MB."
	MsgInvalidProjectName = "Invalid project name. The ZIP file name cannot be empty."
)

// ErrValidation is a rejected upload. Its message is shown to the user as is.
type ErrValidation struct {
	error
}

func NewErrValidation(message string) *ErrValidation {
	return &ErrValidation{errors.New(message)}
}

func NewErrInvalidProjectName() *ErrValidation {
	return NewErrValidation(MsgInvalidProjectName)
}

// ErrAPI is a non-200 answer of the migration API.
type ErrAPI struct {
	error
	StatusCode int
	Message    string
	Details    json.RawMessage
	Body       string
}

func NewErrAPI(apiErr *client.APIError) *ErrAPI {
	return &ErrAPI{
		error:      apiErr,
		StatusCode: apiErr.StatusCode,
		Message:    apiErr.Message,
		Details:    apiErr.Details,
		Body:       apiErr.Body,
	}
}

func (e *ErrAPI) Unwrap() error {
	return e.error
}

type NetworkErrorKind string

const (
	NetworkConnection NetworkErrorKind = "connection"
	NetworkTimeout    NetworkErrorKind = "timeout"
	NetworkGeneric    NetworkErrorKind = "generic"
)

// ErrNetwork is a transport failure before the migration API answered.
type ErrNetwork struct {
	error
	Kind NetworkErrorKind
}

func NewErrNetwork(err error) *ErrNetwork {
	return &ErrNetwork{error: err, Kind: classifyNetworkError(err)}
}

func (e *ErrNetwork) Unwrap() error {
	return e.error
}

func classifyNetworkError(err error) NetworkErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return NetworkTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NetworkTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return NetworkConnection
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return NetworkConnection
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return NetworkConnection
	}

	return NetworkGeneric
}

// ErrUnexpected is any other failure while running a migration.
type ErrUnexpected struct {
	error
}

func NewErrUnexpected(err error) *ErrUnexpected {
	return &ErrUnexpected{fmt.Errorf("unexpected error during migration: %w", err)}
}

func (e *ErrUnexpected) Unwrap() error {
	return e.error
}

type ErrMigrationInProgress struct {
	error
	ProjectName string
}

func NewErrMigrationInProgress(projectName string) *ErrMigrationInProgress {
	return &ErrMigrationInProgress{
		error:       fmt.Errorf("migration of %s is already in progress", projectName),
		ProjectName: projectName,
	}
}

// UserMessage turns any error of the migration workflow into the text shown to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var (
		validationErr *ErrValidation
		apiErr        *ErrAPI
		networkErr    *ErrNetwork
		inProgressErr *ErrMigrationInProgress
		unexpectedErr *ErrUnexpected
		storeWriteErr *store.ErrStoreWrite
		corruptErr    *store.ErrStoreCorrupt
		configErr     *config.ErrConfiguration
	)

	switch {
	case errors.As(err, &validationErr):
		return validationErr.Error()
	case errors.As(err, &apiErr):
		return apiErrorMessage(apiErr)
	case errors.As(err, &networkErr):
		return networkErrorMessage(networkErr)
	case errors.As(err, &inProgressErr):
		return fmt.Sprintf("A migration of %s is already in progress. Please wait for it to finish.", inProgressErr.ProjectName)
	case errors.As(err, &storeWriteErr):
		return fmt.Sprintf("Migration history could not be saved: %v", storeWriteErr)
	case errors.As(err, &corruptErr):
		return fmt.Sprintf("Migration history could not be read: %v", corruptErr)
	case errors.As(err, &configErr):
		return fmt.Sprintf("Configuration Error: %v", configErr)
	case errors.As(err, &unexpectedErr):
		return unexpectedErrorMessage(errors.Unwrap(unexpectedErr.error))
	default:
		return unexpectedErrorMessage(err)
	}
}

func apiErrorMessage(e *ErrAPI) string {
	if e.Message == "" && !json.Valid([]byte(e.Body)) {
		return fmt.Sprintf("API Error (Status %d):\n%s", e.StatusCode, e.Body)
	}

	message := e.Message
	if message == "" {
		message = "Unknown error occurred"
	}

	details := "{}"
	if len(e.Details) > 0 {
		details = indentJSON(e.Details)
	}

	return fmt.Sprintf("API Error: %s\n\nDetails:\n%s", message, details)
}

func networkErrorMessage(e *ErrNetwork) string {
	switch e.Kind {
	case NetworkConnection:
		return strings.Join([]string{
			"Connection Error:",
			"Unable to connect to the SnapLogic API. Please check:",
			"1. Your internet connection",
			"2. The API endpoint is accessible",
			"3. Your network allows the connection",
		}, "\n")
	case NetworkTimeout:
		return "Request Timeout:\nThe request took too long to complete. Please try again."
	default:
		return fmt.Sprintf("Network Error:\n%v", e.error)
	}
}

func unexpectedErrorMessage(err error) string {
	details, _ := json.MarshalIndent(map[string]string{"error": fmt.Sprint(err)}, "", "  ")
	return fmt.Sprintf("Migration Error:\nAn unexpected error occurred during migration\n\nDetails:\n%s", details)
}

func indentJSON(raw json.RawMessage) string {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return string(raw)
	}
	return string(out)
}
