package public

import (
	"errors"

	"github.com/craftkart/api/internal/http/response"
	"github.com/craftkart/api/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	msg    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackMsg string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			msg := rule.msg
			if msg == "" {
				msg = err.Error()
			}
			respondError(c, rule.code, msg, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackMsg, err)
}

func concatMappedHandlerErrors(groups ...[]mappedHandlerError) []mappedHandlerError {
	total := 0
	for _, group := range groups {
		total += len(group)
	}
	result := make([]mappedHandlerError, 0, total)
	for _, group := range groups {
		result = append(result, group...)
	}
	return result
}

// msg 留空时透传具体错误文本（如优惠码拒绝原因）。
var orderQuoteCommonErrorRules = []mappedHandlerError{
	{target: service.ErrOrderEmpty, code: response.CodeBadRequest, msg: "Order has no items"},
	{target: service.ErrOrderItemInvalid, code: response.CodeBadRequest, msg: "Order item is invalid"},
	{target: service.ErrProductNotFound, code: response.CodeBadRequest, msg: "Product is not available"},
	{target: service.ErrProductNotActive, code: response.CodeBadRequest, msg: "Product is not available"},
	{target: service.ErrVariantNotFound, code: response.CodeBadRequest, msg: "Product variant is not available"},
	{target: service.ErrVariantMismatch, code: response.CodeBadRequest, msg: "Product variant is not available"},
	{target: service.ErrCouponNotEligible, code: response.CodeBadRequest, msg: ""},
}

var orderCreateExtraErrorRules = []mappedHandlerError{
	{target: service.ErrShippingInfoInvalid, code: response.CodeBadRequest, msg: "Shipping information is incomplete"},
	{target: service.ErrVariantOutOfStock, code: response.CodeConflict, msg: "Some items are no longer in stock"},
	{target: service.ErrDiscountExhausted, code: response.CodeConflict, msg: "The discount is no longer available"},
	{target: service.ErrPaymentNotEnabled, code: response.CodeBadRequest, msg: "Selected payment method is not enabled"},
	{target: service.ErrPaymentInvalid, code: response.CodeBadRequest, msg: "Selected payment method is invalid"},
}

var orderAccessErrorRules = []mappedHandlerError{
	{target: service.ErrOrderNotFound, code: response.CodeNotFound, msg: "Order not found"},
	{target: service.ErrOrderFetchFailed, code: response.CodeInternal, msg: "Failed to load order"},
}

var paymentCreateErrorRules = []mappedHandlerError{
	{target: service.ErrOrderNotFound, code: response.CodeNotFound, msg: "Order not found"},
	{target: service.ErrOrderNotPayable, code: response.CodeBadRequest, msg: "Order is not payable"},
	{target: service.ErrPaymentNotEnabled, code: response.CodeBadRequest, msg: "Selected payment method is not enabled"},
	{target: service.ErrPaymentInvalid, code: response.CodeBadRequest, msg: "Order does not require online payment"},
	{target: service.ErrPaymentCreateFailed, code: response.CodeInternal, msg: "Failed to start payment"},
}

var paymentCallbackErrorRules = []mappedHandlerError{
	{target: service.ErrPaymentSignatureInvalid, code: response.CodeUnauthorized, msg: "Signature verification failed"},
	{target: service.ErrPaymentNotFound, code: response.CodeNotFound, msg: "Payment not found"},
	{target: service.ErrPaymentInvalid, code: response.CodeBadRequest, msg: "Callback payload is invalid"},
	{target: service.ErrPaymentAmountMismatch, code: response.CodeBadRequest, msg: "Payment amount mismatch"},
	{target: service.ErrOrderNotPayable, code: response.CodeConflict, msg: "Order is no longer payable"},
}

func respondOrderPreviewError(c *gin.Context, err error) {
	respondWithMappedError(c, err, orderQuoteCommonErrorRules, response.CodeInternal, "Failed to build order preview")
}

func respondOrderCreateError(c *gin.Context, err error) {
	respondWithMappedError(c, err,
		concatMappedHandlerErrors(orderQuoteCommonErrorRules, orderCreateExtraErrorRules),
		response.CodeInternal, "Failed to create order")
}

func respondPaymentCallbackError(c *gin.Context, err error) {
	respondWithMappedError(c, err, paymentCallbackErrorRules, response.CodeInternal, "Failed to process payment callback")
}
