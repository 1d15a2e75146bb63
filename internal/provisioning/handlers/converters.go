package handlers

import (
	"errors"
	"net/http"
	"time"

	e "github.com/gartstein/tenantprov/internal/provisioning/errors"
	"github.com/gartstein/tenantprov/internal/provisioning/models"
	"go.uber.org/zap"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/protoadapt"
)

const errorDomain = "tenantprov"

type AddressDTO struct {
	Line1      string `json:"addressLine1,omitempty"`
	Line2      string `json:"addressLine2,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country,omitempty"`
}

type CompanyDTO struct {
	ID           string     `json:"id"`
	BusinessID   string     `json:"businessId"`
	Name         string     `json:"name"`
	Email        string     `json:"email,omitempty"`
	Website      string     `json:"website,omitempty"`
	Phone        string     `json:"phone,omitempty"`
	Logo         string     `json:"logo,omitempty"`
	Address      AddressDTO `json:"address"`
	Status       string     `json:"status"`
	Currency     string     `json:"currency"`
	Language     string     `json:"language"`
	ModuleID     string     `json:"moduleId"`
	TrialStart   time.Time  `json:"trialStart"`
	TrialEnd     time.Time  `json:"trialEnd"`
	TrialExpired bool       `json:"trialExpired"`
	Package      string     `json:"package"`
	CreatedAt    time.Time  `json:"createdAt"`
}

type AccountDTO struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// ProvisionResponse is the success body of a provisioning call.
type ProvisionResponse struct {
	Success  bool        `json:"success"`
	Message  string      `json:"message"`
	Company  *CompanyDTO `json:"company"`
	Admin    *AccountDTO `json:"admin"`
	Customer *AccountDTO `json:"customer,omitempty"`
	Warnings []string    `json:"warnings"`
}

type CompanyResponse struct {
	Success bool        `json:"success"`
	Company *CompanyDTO `json:"company"`
}

// ErrorResponse is the failure body shared by every route.
type ErrorResponse struct {
	Success   bool   `json:"success"`
	ErrorType string `json:"errorType"`
	Message   string `json:"message"`
	Field     string `json:"field,omitempty"`
}

func companyToDTO(c *models.Company) *CompanyDTO {
	if c == nil {
		return nil
	}
	return &CompanyDTO{
		ID:         c.ID.String(),
		BusinessID: c.BusinessID,
		Name:       c.Name,
		Email:      c.Email,
		Website:    c.Website,
		Phone:      c.Phone,
		Logo:       c.Logo,
		Address: AddressDTO{
			Line1:      c.Address.Line1,
			Line2:      c.Address.Line2,
			City:       c.Address.City,
			State:      c.Address.State,
			PostalCode: c.Address.PostalCode,
			Country:    c.Address.Country,
		},
		Status:       string(c.Status),
		Currency:     c.Currency,
		Language:     c.Language,
		ModuleID:     c.ModuleID.String(),
		TrialStart:   c.TrialStart,
		TrialEnd:     c.TrialEnd,
		TrialExpired: c.TrialExpired,
		Package:      c.Package,
		CreatedAt:    c.CreatedAt,
	}
}

func accountToDTO(a *models.Account) *AccountDTO {
	if a == nil {
		return nil
	}
	return &AccountDTO{
		ID:    a.ID.String(),
		Email: a.Email,
		Role:  string(a.Role),
	}
}

func resultToResponse(r *models.ProvisionResult) *ProvisionResponse {
	warnings := r.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return &ProvisionResponse{
		Success:  true,
		Message:  "Company created successfully",
		Company:  companyToDTO(r.Company),
		Admin:    accountToDTO(r.Admin),
		Customer: accountToDTO(r.Customer),
		Warnings: warnings,
	}
}

// errorMessage gives caller mistakes their field message, fixed text for
// retryable and not-found failures, and the underlying cause for anything
// unclassified.
func errorMessage(err error) string {
	switch e.KindOf(err) {
	case e.KindValidation:
		var fe *e.FieldError
		if errors.As(err, &fe) {
			return fe.Error()
		}
		return err.Error()
	case e.KindNotFound:
		return "company not found"
	case e.KindConnection:
		return "the database is unavailable, retry later"
	case e.KindTimeout:
		return "the operation timed out and was rolled back, retry later"
	default:
		return "provisioning failed: " + err.Error()
	}
}

func toErrorResponse(err error) *ErrorResponse {
	return &ErrorResponse{
		Success:   false,
		ErrorType: string(e.KindOf(err)),
		Message:   errorMessage(err),
		Field:     e.FieldOf(err),
	}
}

// httpStatus maps a classified error onto an HTTP status code. Natural key
// collisions report 409 while staying in the validation class.
func httpStatus(err error) int {
	switch e.KindOf(err) {
	case e.KindValidation:
		if errors.Is(err, e.ErrDuplicate) {
			return http.StatusConflict
		}
		return http.StatusBadRequest
	case e.KindNotFound:
		return http.StatusNotFound
	case e.KindConnection:
		return http.StatusServiceUnavailable
	case e.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// grpcCode mirrors httpStatus for the gRPC surface.
func grpcCode(err error) codes.Code {
	switch e.KindOf(err) {
	case e.KindValidation:
		if errors.Is(err, e.ErrDuplicate) {
			return codes.AlreadyExists
		}
		return codes.InvalidArgument
	case e.KindNotFound:
		return codes.NotFound
	case e.KindConnection:
		return codes.Unavailable
	case e.KindTimeout:
		return codes.DeadlineExceeded
	default:
		return codes.Internal
	}
}

// mapServiceError maps domain or repository errors to gRPC statuses carrying
// the error class and, for validation failures, the offending field.
func mapServiceError(err error, logger *zap.Logger) error {
	if e.KindOf(err) == e.KindGeneric {
		logger.Error("Internal server error", zap.Error(err))
	}

	st := status.New(grpcCode(err), errorMessage(err))
	details := []protoadapt.MessageV1{
		&errdetails.ErrorInfo{Reason: string(e.KindOf(err)), Domain: errorDomain},
	}
	if field := e.FieldOf(err); field != "" {
		details = append(details, &errdetails.BadRequest{
			FieldViolations: []*errdetails.BadRequest_FieldViolation{
				{Field: field, Description: errorMessage(err)},
			},
		})
	}

	withDetails, detailErr := st.WithDetails(details...)
	if detailErr != nil {
		return st.Err()
	}
	return withDetails.Err()
}
