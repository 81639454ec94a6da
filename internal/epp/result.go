// Package epp models the EPP commands and responses the registry understands
// and the protocol errors flows report back to registrars.
package epp

import (
	"errors"
	"fmt"
	"strconv"
)

// ResultCode is an EPP result code (RFC 5730 section 3).
type ResultCode int

const (
	Success                       ResultCode = 1000
	CommandSyntaxError            ResultCode = 2001
	CommandUseError               ResultCode = 2002
	RequiredParameterMissing      ResultCode = 2003
	ParameterValueRangeError      ResultCode = 2004
	ParameterValueSyntaxError     ResultCode = 2005
	UnimplementedCommand          ResultCode = 2101
	UnimplementedOption           ResultCode = 2102
	UnimplementedExtension        ResultCode = 2103
	AuthorizationError            ResultCode = 2201
	InvalidAuthorizationInfo      ResultCode = 2202
	ObjectDoesNotExist            ResultCode = 2303
	StatusProhibitsOperation      ResultCode = 2304
	AssociationProhibitsOperation ResultCode = 2305
	ParameterValuePolicyError     ResultCode = 2306
	CommandFailed                 ResultCode = 2400
)

var resultMessages = map[ResultCode]string{
	Success:                       "Command completed successfully",
	CommandSyntaxError:            "Command syntax error",
	CommandUseError:               "Command use error",
	RequiredParameterMissing:      "Required parameter missing",
	ParameterValueRangeError:      "Parameter value range error",
	ParameterValueSyntaxError:     "Parameter value syntax error",
	UnimplementedCommand:          "Unimplemented command",
	UnimplementedOption:           "Unimplemented option",
	UnimplementedExtension:        "Unimplemented extension",
	AuthorizationError:            "Authorization error",
	InvalidAuthorizationInfo:      "Invalid authorization information",
	ObjectDoesNotExist:            "Object does not exist",
	StatusProhibitsOperation:      "Object status prohibits operation",
	AssociationProhibitsOperation: "Object association prohibits operation",
	ParameterValuePolicyError:     "Parameter value policy error",
	CommandFailed:                 "Command failed",
}

// Message is the standard text for the code.
func (c ResultCode) Message() string {
	if m, ok := resultMessages[c]; ok {
		return m
	}
	return "Unknown result"
}

// IsSuccess reports whether c is a 1xxx code.
func (c ResultCode) IsSuccess() bool {
	return c >= 1000 && c < 2000
}

func (c ResultCode) String() string {
	return strconv.Itoa(int(c))
}

// Reason identifies a protocol error independently of its result code, since
// several distinct failures share one code.
type Reason string

const (
	ReasonSyntax                      Reason = "syntax_error"
	ReasonUnknownCommand              Reason = "unknown_command"
	ReasonNotLoggedIn                 Reason = "not_logged_in"
	ReasonUndeclaredExtension         Reason = "undeclared_extension"
	ReasonUnimplementedExtension      Reason = "unimplemented_extension"
	ReasonRepeatedExtension           Reason = "unsupported_repeated_extension"
	ReasonMetadataNotFromTool         Reason = "only_tool_can_pass_metadata"
	ReasonRegistrarInactive           Reason = "registrar_inactive"
	ReasonNotOwner                    Reason = "not_owner"
	ReasonNotAuthorizedForTld         Reason = "not_authorized_for_tld"
	ReasonMissingBillingAccount       Reason = "missing_billing_account"
	ReasonBadAuthInfo                 Reason = "bad_auth_info"
	ReasonDomainNotFound              Reason = "domain_not_found"
	ReasonStatusProhibits             Reason = "status_prohibits_operation"
	ReasonBadPeriodUnit               Reason = "bad_period_unit"
	ReasonBadPeriodValue              Reason = "bad_period_value"
	ReasonExceedsMaxRegistrationYears Reason = "exceeds_max_registration_years"
	ReasonStaleExpirationDate         Reason = "incorrect_current_expiration_date"
	ReasonFeesMismatch                Reason = "fees_mismatch"
	ReasonFeesRequiredForPremium      Reason = "fees_required_for_premium_name"
	ReasonCurrencyMismatch            Reason = "currency_unit_mismatch"
	ReasonCurrencyScale               Reason = "currency_value_scale"
	ReasonUnknownCurrency             Reason = "unknown_currency"
	ReasonUnsupportedFeeAttribute     Reason = "unsupported_fee_attribute"
	ReasonTokenNonexistent            Reason = "nonexistent_allocation_token"
	ReasonTokenNotInPromotion         Reason = "allocation_token_not_in_promotion"
	ReasonTokenRedeemed               Reason = "allocation_token_already_redeemed"
	ReasonTokenWrongRegistrar         Reason = "allocation_token_not_valid_for_registrar"
	ReasonTokenWrongTld               Reason = "allocation_token_not_valid_for_tld"
	ReasonTokenWrongDomain            Reason = "allocation_token_not_valid_for_domain"
	ReasonTokenWrongCommand           Reason = "allocation_token_not_valid_for_command"
	ReasonBulkTokenRequired           Reason = "missing_remove_bulk_pricing_token"
	ReasonBulkTokenNotBulkDomain      Reason = "remove_bulk_pricing_token_on_non_bulk_domain"
	ReasonInternal                    Reason = "internal_error"
)

// Error is a protocol failure reported to the registrar as an EPP response.
// Flows return it to abort a command; it is never retried.
type Error struct {
	Code    ResultCode
	Reason  Reason
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("epp %d (%s): %s", e.Code, e.Reason, e.Message)
}

// NewError builds a protocol error.
func NewError(code ResultCode, reason Reason, msg string) *Error {
	return &Error{Code: code, Reason: reason, Message: msg}
}

// AsError extracts a protocol error from err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// HasReason reports whether err is a protocol error with reason r.
func HasReason(err error, r Reason) bool {
	e, ok := AsError(err)
	return ok && e.Reason == r
}

func ErrSyntax(detail string) *Error {
	return NewError(CommandSyntaxError, ReasonSyntax, detail)
}

func ErrUnknownCommand(command string) *Error {
	return NewError(UnimplementedCommand, ReasonUnknownCommand, "No flow found for "+command)
}

func ErrNotLoggedIn() *Error {
	return NewError(CommandUseError, ReasonNotLoggedIn, "Registrar is not logged in.")
}

func ErrUndeclaredExtension(uri string) *Error {
	return NewError(CommandUseError, ReasonUndeclaredExtension, "Service extension(s) must be declared at login: "+uri)
}

func ErrUnimplementedExtension(uri string) *Error {
	return NewError(UnimplementedExtension, ReasonUnimplementedExtension, "Unimplemented extension: "+uri)
}

func ErrRepeatedExtension(ext string) *Error {
	return NewError(CommandSyntaxError, ReasonRepeatedExtension, "Only one extension of a given type may be specified: "+ext)
}

func ErrMetadataNotFromTool() *Error {
	return NewError(AuthorizationError, ReasonMetadataNotFromTool, "Metadata extensions can only be passed by tools")
}

func ErrRegistrarInactive() *Error {
	return NewError(AuthorizationError, ReasonRegistrarInactive, "Registrar must be active in order to perform this operation")
}

func ErrNotOwner() *Error {
	return NewError(AuthorizationError, ReasonNotOwner, "The specified resource belongs to another client")
}

func ErrNotAuthorizedForTld(tld string) *Error {
	return NewError(AuthorizationError, ReasonNotAuthorizedForTld, "Registrar is not authorized to access the TLD "+tld)
}

func ErrMissingBillingAccount(currency string) *Error {
	return NewError(AuthorizationError, ReasonMissingBillingAccount,
		"Registrar is not fully onboarded for TLDs that bill in "+currency)
}

func ErrBadAuthInfo() *Error {
	return NewError(InvalidAuthorizationInfo, ReasonBadAuthInfo, "Authorization information for accessing resource is invalid")
}

func ErrDomainNotFound(name string) *Error {
	return NewError(ObjectDoesNotExist, ReasonDomainNotFound, fmt.Sprintf("The domain with given ID (%s) doesn't exist.", name))
}

func ErrStatusProhibits(statuses string) *Error {
	return NewError(StatusProhibitsOperation, ReasonStatusProhibits, "Operation disallowed by status: "+statuses)
}

func ErrBadPeriodUnit() *Error {
	return NewError(ParameterValuePolicyError, ReasonBadPeriodUnit, "Period must be specified in years")
}

func ErrBadPeriodValue(years int) *Error {
	return NewError(ParameterValueRangeError, ReasonBadPeriodValue, fmt.Sprintf("Period of %d years is outside the allowed range", years))
}

func ErrExceedsMaxRegistrationYears(max int) *Error {
	return NewError(ParameterValueRangeError, ReasonExceedsMaxRegistrationYears,
		fmt.Sprintf("Registrations cannot extend for more than %d years into the future", max))
}

func ErrStaleExpirationDate() *Error {
	return NewError(ParameterValueRangeError, ReasonStaleExpirationDate, "The current expiration date is incorrect")
}

func ErrFeesMismatch(expected string) *Error {
	return NewError(ParameterValueRangeError, ReasonFeesMismatch,
		"The fees passed in the transform command do not match the fees that will be charged: expected "+expected)
}

func ErrFeesRequiredForPremium(price string) *Error {
	return NewError(RequiredParameterMissing, ReasonFeesRequiredForPremium,
		"Fees must be explicitly acknowledged when performing an operation on a premium name: "+price)
}

func ErrCurrencyMismatch() *Error {
	return NewError(ParameterValueRangeError, ReasonCurrencyMismatch, "Currency specified does not match the expected currency")
}

func ErrCurrencyScale() *Error {
	return NewError(ParameterValueSyntaxError, ReasonCurrencyScale, "Currency value exceeds precision for currency")
}

func ErrUnknownCurrency() *Error {
	return NewError(ParameterValueRangeError, ReasonUnknownCurrency, "Unknown currency.")
}

func ErrUnsupportedFeeAttribute() *Error {
	return NewError(UnimplementedOption, ReasonUnsupportedFeeAttribute, "Fee attributes other than the defaults are not supported")
}

func ErrTokenNonexistent() *Error {
	return NewError(AuthorizationError, ReasonTokenNonexistent, "The allocation token is invalid")
}

func ErrTokenNotInPromotion() *Error {
	return NewError(StatusProhibitsOperation, ReasonTokenNotInPromotion, "The allocation token is not currently valid")
}

func ErrTokenRedeemed() *Error {
	return NewError(AssociationProhibitsOperation, ReasonTokenRedeemed, "Alloc token was already redeemed")
}

func ErrTokenWrongRegistrar() *Error {
	return NewError(AssociationProhibitsOperation, ReasonTokenWrongRegistrar, "The allocation token is not valid for this registrar")
}

func ErrTokenWrongTld() *Error {
	return NewError(AssociationProhibitsOperation, ReasonTokenWrongTld, "The allocation token is not valid for this TLD")
}

func ErrTokenWrongDomain() *Error {
	return NewError(AssociationProhibitsOperation, ReasonTokenWrongDomain, "The allocation token is not valid for this domain")
}

func ErrTokenWrongCommand() *Error {
	return NewError(AssociationProhibitsOperation, ReasonTokenWrongCommand, "The allocation token is not valid for this command")
}

func ErrBulkTokenRequired() *Error {
	return NewError(AssociationProhibitsOperation, ReasonBulkTokenRequired,
		"The REMOVE_BULK_PRICING allocation token must be used on bulk pricing domains")
}

func ErrBulkTokenNotBulkDomain() *Error {
	return NewError(AssociationProhibitsOperation, ReasonBulkTokenNotBulkDomain,
		"The REMOVE_BULK_PRICING allocation token can only be used on bulk pricing domains")
}

// ErrCommandFailed hides an internal fault behind the generic 2400 result.
func ErrCommandFailed() *Error {
	return NewError(CommandFailed, ReasonInternal, "Command failed")
}
