package handler

import (
	"net/http"
)

// 收入页面展示的最近支付记录条数
const recentPaymentLimit = 20

func (h *Handler) GetRevenue(w http.ResponseWriter, r *http.Request) {
	summary, err := h.repository.GetRevenueSummary()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	payments, err := h.repository.ListRecentPayments(recentPaymentLimit)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取收入汇总成功", map[string]any{
		"summary":  summary,
		"payments": payments,
	})
}
