package helper

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/sportdesk/walletd/internal/errHandler"
)

type HelperRepository struct {
	WG         *sync.WaitGroup
	errHandler *errHandler.ErrorHandler
}

func New(wg *sync.WaitGroup, errHandler *errHandler.ErrorHandler) *HelperRepository {
	return &HelperRepository{
		WG:         wg,
		errHandler: errHandler,
	}
}

// BackgroundTask runs fn in a goroutine that survives a panic and reports
// failures through the error handler.
func (h *HelperRepository) BackgroundTask(r *http.Request, fn func() error) {
	h.WG.Add(1)

	go func() {
		defer h.WG.Done()

		defer func() {
			err := recover()
			if err != nil {
				h.errHandler.ReportServerError(r, fmt.Errorf("%s", err))
			}
		}()

		err := fn()
		if err != nil {
			h.errHandler.ReportServerError(r, err)
		}
	}()
}
