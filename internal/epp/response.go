package epp

import (
	"encoding/xml"
	"strconv"
	"time"

	"github.com/ptkach/nomulus/internal/registry/models"
)

// Result is the <result> of a response.
type Result struct {
	Code    ResultCode
	Message string
}

// Response is an EPP response. ResData and Extensions hold values that marshal
// themselves as XML elements, such as *DomainRenewData and *FeeRenewData.
type Response struct {
	Result     Result
	ResData    any
	Extensions []any
	Trid       models.Trid
}

// SuccessResponse is a 1000 response carrying resData and extensions.
func SuccessResponse(resData any, extensions ...any) *Response {
	return &Response{
		Result:     Result{Code: Success, Message: Success.Message()},
		ResData:    resData,
		Extensions: extensions,
	}
}

// ErrorResponse renders a protocol error.
func ErrorResponse(err *Error, trid models.Trid) *Response {
	msg := err.Message
	if msg == "" {
		msg = err.Code.Message()
	}
	return &Response{Result: Result{Code: err.Code, Message: msg}, Trid: trid}
}

// DomainRenewData is <domain:renData>.
type DomainRenewData struct {
	XMLName        xml.Name  `xml:"domain:renData"`
	XmlnsDomain    string    `xml:"xmlns:domain,attr"`
	Name           string    `xml:"domain:name"`
	ExpirationTime time.Time `xml:"domain:exDate"`
}

func NewDomainRenewData(name string, exp time.Time) *DomainRenewData {
	return &DomainRenewData{XmlnsDomain: DomainURI, Name: name, ExpirationTime: exp.UTC()}
}

// FeeRenewData is the fee-1.0 <fee:renData> response extension.
type FeeRenewData struct {
	XMLName  xml.Name     `xml:"fee:renData"`
	XmlnsFee string       `xml:"xmlns:fee,attr"`
	Currency string       `xml:"fee:currency"`
	Period   feePeriodXML `xml:"fee:period"`
	Fees     []FeeData    `xml:"fee:fee"`
}

type feePeriodXML struct {
	Unit  string `xml:"unit,attr"`
	Value string `xml:",chardata"`
}

// FeeData is one charged fee. Amount is rendered at the currency scale.
type FeeData struct {
	Amount      string `xml:",chardata"`
	Description string `xml:"description,attr,omitempty"`
}

// NewFeeRenewData reports the renew cost for a period of years.
func NewFeeRenewData(cost models.Money, years int, premium bool) *FeeRenewData {
	description := "renew"
	if premium {
		description = "renew (premium)"
	}
	return &FeeRenewData{
		XmlnsFee: FeeURI,
		Currency: cost.Currency,
		Period:   feePeriodXML{Unit: string(models.PeriodYears), Value: strconv.Itoa(years)},
		Fees:     []FeeData{{Amount: cost.Formatted(), Description: description}},
	}
}
