package handler

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sportdesk/walletd/internal/approval"
	"github.com/sportdesk/walletd/internal/context"
	"github.com/sportdesk/walletd/internal/errHandler"
	"github.com/sportdesk/walletd/internal/identity"
	"github.com/sportdesk/walletd/internal/models"
	"github.com/sportdesk/walletd/internal/repository"
	"github.com/sportdesk/walletd/internal/request"
	"github.com/sportdesk/walletd/internal/response"
	"github.com/sportdesk/walletd/internal/validator"
)

type ApprovalResponseData struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	BranchID   int       `json:"branch_id"`
	Amount     float64   `json:"amount"`
	Comment    string    `json:"comment"`
	ReceiptURL string    `json:"receipt_url,omitempty"`
	Status     string    `json:"status"`
	VerifiedBy string    `json:"verified_by,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type ApprovalHandler struct {
	Workflow     *approval.Workflow
	ApprovalRepo repository.ApprovalRepository

	ErrHandler *errHandler.ErrorHandler
}

func NewApprovalHandler(handler *ApprovalHandler) *ApprovalHandler {
	return &ApprovalHandler{
		Workflow:     handler.Workflow,
		ApprovalRepo: handler.ApprovalRepo,
		ErrHandler:   handler.ErrHandler,
	}
}

// HandleSubmitApproval records a cashbook request in Pending. Expense requests
// arrive as multipart form data so the receipt image can ride along; cash-in
// and cash-out are plain JSON.
func (h *ApprovalHandler) HandleSubmitApproval(w http.ResponseWriter, r *http.Request) {
	var (
		input      approval.SubmitInput
		v          validator.Validator
		tmpReceipt string
	)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		path, err := h.decodeMultipartSubmission(r, &input)
		if err != nil {
			h.ErrHandler.BadRequest(w, r, err)
			return
		}
		tmpReceipt = path
		if tmpReceipt != "" {
			defer os.Remove(tmpReceipt)
		}
	} else {
		var body struct {
			Type     string  `json:"type"`
			BranchID int     `json:"branch_id"`
			Amount   float64 `json:"amount"`
			Comment  string  `json:"comment"`
		}
		err := request.DecodeJSON(w, r, &body)
		if err != nil {
			h.ErrHandler.BadRequest(w, r, err)
			return
		}
		input.Type = models.ApprovalType(body.Type)
		input.BranchID = body.BranchID
		input.Amount = body.Amount
		input.Comment = body.Comment
	}

	v.Check(input.Type.Valid(), "Type must be cash_in, cash_out or expense")
	v.Check(input.BranchID > 0, "Branch ID is required")
	v.Check(input.Amount > 0, "Amount must be greater than zero")
	v.Check(validator.MaxRunes(input.Comment, 500), "Comment must not exceed 500 characters")

	if v.HasErrors() {
		h.ErrHandler.FailedValidation(w, r, v.Errors)
		return
	}

	user := context.ContextGetAuthenticatedUser(r)
	input.ClientID = user.ClientID
	input.UserID = user.UserID
	input.ReceiptFile = tmpReceipt

	record, err := h.Workflow.Submit(r.Context(), input)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	message := "Request submitted for approval"
	err = response.JSONCreatedResponse(w, approvalResponse(record), message)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func (h *ApprovalHandler) decodeMultipartSubmission(r *http.Request, input *approval.SubmitInput) (string, error) {
	err := r.ParseMultipartForm(10 << 20) // 10 MB
	if err != nil {
		return "", errors.New("invalid request data")
	}

	input.Type = models.ApprovalType(r.FormValue("type"))
	input.Comment = r.FormValue("comment")
	input.BranchID, _ = strconv.Atoi(r.FormValue("branch_id"))
	input.Amount, _ = strconv.ParseFloat(r.FormValue("amount"), 64)

	file, handler, err := r.FormFile("receipt")
	if err != nil {
		// no receipt attached
		return "", nil
	}
	defer file.Close()

	tempFile, err := os.CreateTemp("", fmt.Sprintf("receipt-*%s", filepath.Ext(handler.Filename)))
	if err != nil {
		return "", errors.New("could not store the receipt")
	}
	defer tempFile.Close()

	_, err = tempFile.ReadFrom(file)
	if err != nil {
		os.Remove(tempFile.Name())
		return "", errors.New("could not store the receipt")
	}

	return tempFile.Name(), nil
}

// HandleDecideApproval is the verifier's approve/reject endpoint.
func (h *ApprovalHandler) HandleDecideApproval(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Action    string              `json:"action"`
		Comment   string              `json:"comment"`
		Validator validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	input.Validator.Check(input.Action == "approve" || input.Action == "reject", "Action must be approve or reject")
	input.Validator.Check(validator.MaxRunes(input.Comment, 500), "Comment must not exceed 500 characters")

	if input.Validator.HasErrors() {
		h.ErrHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	user := context.ContextGetAuthenticatedUser(r)
	verifier := &identity.User{
		UserID:   user.UserID,
		ClientID: user.ClientID,
		Username: user.Username,
	}

	record, err := h.Workflow.Decide(r.Context(), r.PathValue("id"), verifier, input.Action == "approve", input.Comment)
	if err != nil {
		switch {
		case errors.Is(err, approval.ErrApprovalNotFound):
			h.ErrHandler.NotFound(w, r)
		case errors.Is(err, approval.ErrAlreadyDecided):
			h.ErrHandler.Conflict(w, r, approval.ErrAlreadyDecided)
		case errors.Is(err, approval.ErrUnauthorized):
			h.ErrHandler.Forbidden(w, r, approval.ErrUnauthorized)
		case errors.Is(err, repository.ErrInsufficientFunds):
			response.JSONErrorResponse(w, nil, "The branch wallet cannot cover this amount", http.StatusUnprocessableEntity, nil)
		default:
			h.ErrHandler.ServerError(w, r, err)
		}
		return
	}

	message := "Request " + input.Action + "d successfully"
	err = response.JSONOkResponse(w, approvalResponse(record), message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func (h *ApprovalHandler) HandleListPendingApprovals(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	limit := queryInt(r, "limit", "20")
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := queryInt(r, "offset", "0")
	if offset < 0 {
		offset = 0
	}

	approvals, err := h.ApprovalRepo.ListPending(user.ClientID, limit, offset)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	data := make([]*ApprovalResponseData, len(approvals))
	for i := range approvals {
		data[i] = approvalResponse(&approvals[i])
	}

	message := "Pending requests retrieved successfully"
	err = response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func approvalResponse(a *models.Approval) *ApprovalResponseData {
	return &ApprovalResponseData{
		ID:         a.ID,
		Type:       string(a.Type),
		BranchID:   a.BranchID,
		Amount:     a.Amount,
		Comment:    a.Comment,
		ReceiptURL: a.ReceiptURL,
		Status:     a.Status.String(),
		VerifiedBy: a.VerifiedBy,
		CreatedAt:  a.CreatedAt,
	}
}
