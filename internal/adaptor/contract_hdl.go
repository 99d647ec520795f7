package adaptor

import (
	"net/http"

	"rental-marketplace/internal/usecase"
	"rental-marketplace/pkg/utils"

	"go.uber.org/zap"
)

type ContractHandler struct {
	contracts usecase.ContractService
	log       *zap.Logger
}

func NewContractHandler(contracts usecase.ContractService, log *zap.Logger) *ContractHandler {
	return &ContractHandler{
		contracts: contracts,
		log:       log.With(zap.String("handler", "contract")),
	}
}

// GetContract handles GET /api/admin/contracts/{id}
func (h *ContractHandler) GetContract(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Contract")
	if !ok {
		return
	}

	contract, err := h.contracts.GetContract(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.log, err, "get contract")
		return
	}

	utils.ResponseSuccess(w, "success", contract)
}
