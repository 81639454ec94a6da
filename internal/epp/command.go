package epp

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/ptkach/nomulus/internal/registry/models"
)

// Namespace URIs of the objects and extensions the registry parses.
const (
	EppURI             = "urn:ietf:params:xml:ns:epp-1.0"
	DomainURI          = "urn:ietf:params:xml:ns:domain-1.0"
	HostURI            = "urn:ietf:params:xml:ns:host-1.0"
	ContactURI         = "urn:ietf:params:xml:ns:contact-1.0"
	FeeURI             = "urn:ietf:params:xml:ns:epp:fee-1.0"
	AllocationTokenURI = "urn:ietf:params:xml:ns:allocationToken-1.0"
	MetadataURI        = "urn:google:params:xml:ns:metadata-1.0"
)

// ServiceExtensions lists every extension a stateless session declares.
var ServiceExtensions = []string{FeeURI, AllocationTokenURI, MetadataURI}

// CommandKind names a command as "object:verb", or just the verb for
// session commands.
type CommandKind string

const (
	CommandDomainRenew    CommandKind = "domain:renew"
	CommandDomainCreate   CommandKind = "domain:create"
	CommandDomainDelete   CommandKind = "domain:delete"
	CommandDomainTransfer CommandKind = "domain:transfer"
	CommandDomainInfo     CommandKind = "domain:info"
	CommandLogin          CommandKind = "login"
	CommandLogout         CommandKind = "logout"
	CommandPoll           CommandKind = "poll"
)

// Command is a parsed EPP command.
type Command struct {
	Kind        CommandKind
	ClientTRID  string
	DomainRenew *DomainRenew
	Extensions  Extensions
	// Raw holds the command bytes as received.
	Raw []byte
}

// TargetID is the object the command acts on, if any.
func (c *Command) TargetID() string {
	if c != nil && c.DomainRenew != nil {
		return c.DomainRenew.Name
	}
	return ""
}

// DomainRenew is <domain:renew>.
type DomainRenew struct {
	Name       string
	CurExpDate models.Date
	Period     models.Period
	// AuthInfo is the optional domain password.
	AuthInfo string
}

// ExtensionType identifies an <extension> child by namespace and element.
type ExtensionType struct {
	URI  string
	Name string
}

func (t ExtensionType) String() string {
	return t.URI + ":" + t.Name
}

// Extension types the registry decodes.
var (
	FeeRenewExtension        = ExtensionType{URI: FeeURI, Name: "renew"}
	AllocationTokenExtension = ExtensionType{URI: AllocationTokenURI, Name: "allocationToken"}
	MetadataExtension        = ExtensionType{URI: MetadataURI, Name: "metadata"}
)

// Extensions holds the command's <extension> children.
type Extensions struct {
	// Types lists every extension element present, in document order,
	// including repeats and elements the registry does not decode.
	Types           []ExtensionType
	FeeRenew        *FeeRenew
	AllocationToken *AllocationToken
	Metadata        *Metadata
}

// URIs lists the distinct extension namespaces present, in document order.
func (e Extensions) URIs() []string {
	var uris []string
	for _, t := range e.Types {
		if !slices.Contains(uris, t.URI) {
			uris = append(uris, t.URI)
		}
	}
	return uris
}

// Has reports whether an extension with uri was sent.
func (e Extensions) Has(uri string) bool {
	return slices.ContainsFunc(e.Types, func(t ExtensionType) bool { return t.URI == uri })
}

// FeeRenew is the fee-1.0 renew command extension: the price the client
// expects to be charged.
type FeeRenew struct {
	// Currency is empty when the client omitted it.
	Currency string
	Fees     []Fee
}

// Fee is one <fee:fee> element.
type Fee struct {
	Amount      decimal.Decimal
	Description string
	// Refundable, GracePeriod and Applied are nil when absent.
	Refundable  *bool
	GracePeriod *string
	Applied     *string
}

// HasDefaultAttributes reports whether the optional attributes are absent or
// set to their schema defaults.
func (f Fee) HasDefaultAttributes() bool {
	if f.Refundable != nil && !*f.Refundable {
		return false
	}
	if f.GracePeriod != nil && *f.GracePeriod != "P0D" {
		return false
	}
	if f.Applied != nil && *f.Applied != "immediate" {
		return false
	}
	return true
}

// Total sums the fee amounts.
func (f *FeeRenew) Total() decimal.Decimal {
	total := decimal.Zero
	for _, fee := range f.Fees {
		total = total.Add(fee.Amount)
	}
	return total
}

// AllocationToken is the allocationToken-1.0 extension.
type AllocationToken struct {
	Token string
}

// Metadata is the registry's metadata extension, used by tooling to annotate
// history entries.
type Metadata struct {
	Reason               string
	RequestedByRegistrar *bool
}
