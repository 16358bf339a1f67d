package http

import (
	"errors"
	"net/http"
)

// handleLedger returns every month with recalculated balances, the goal
// summary and the per-year grouping.
func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.withTimeout(r)
	defer cancel()

	snap, err := s.ledger.Snapshot(ctx)
	if err != nil {
		FromError(ctx, err).Write(w)
		return
	}
	NewJSONResponse().Data(newLedgerView(snap)).Write(w)
}

// handleAddTransaction adds an amount to one category of one month. The
// body is JSON or a urlencoded form with month, category, amount and
// comment.
func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.withTimeout(r)
	defer cancel()

	parser := NewRequestBodyParser(w, r)
	if err := parser.Parse(); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			ErrorResponse(http.StatusRequestEntityTooLarge, "request body too large").Write(w)
			return
		}
		BadRequestError(err.Error()).Write(w)
		return
	}

	tx, err := ParseTransaction(parser)
	if err != nil {
		FromError(ctx, err).Write(w)
		return
	}

	snap, err := s.ledger.AddTransaction(ctx, tx)
	if err != nil {
		FromError(ctx, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Data(newLedgerView(snap)).Write(w)
}
