package epp

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ptkach/nomulus/internal/registry/models"
)

// maxCommandBytes bounds the accepted command size.
const maxCommandBytes = 1 << 20

type eppXML struct {
	XMLName xml.Name    `xml:"epp"`
	Command *commandXML `xml:"command"`
}

type commandXML struct {
	verb        string
	object      string
	domainRenew *domainRenewXML
	extension   extensionXML
	clientTRID  string
}

type domainRenewXML struct {
	Name       string `xml:"name"`
	CurExpDate string `xml:"curExpDate"`
	Period     struct {
		Unit  string `xml:"unit,attr"`
		Value string `xml:",chardata"`
	} `xml:"period"`
	AuthInfo *struct {
		Pw string `xml:"pw"`
	} `xml:"authInfo"`
}

type feeRenewXML struct {
	Currency string   `xml:"currency"`
	Fees     []feeXML `xml:"fee"`
}

type feeXML struct {
	Amount      string  `xml:",chardata"`
	Description string  `xml:"description,attr"`
	Refundable  *string `xml:"refundable,attr"`
	GracePeriod *string `xml:"grace-period,attr"`
	Applied     *string `xml:"applied,attr"`
}

type metadataXML struct {
	Reason               string  `xml:"reason"`
	RequestedByRegistrar *string `xml:"requestedByRegistrar"`
}

type extensionXML struct {
	types           []ExtensionType
	feeRenew        *feeRenewXML
	allocationToken *string
	metadata        *metadataXML
}

func (c *commandXML) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "extension":
				if err := d.DecodeElement(&c.extension, &t); err != nil {
					return err
				}
			case "clTRID":
				if err := d.DecodeElement(&c.clientTRID, &t); err != nil {
					return err
				}
			default:
				if c.verb != "" {
					return fmt.Errorf("more than one command element: %s and %s", c.verb, t.Name.Local)
				}
				c.verb = t.Name.Local
				if err := c.decodeVerb(d); err != nil {
					return err
				}
			}
		case xml.EndElement:
			return nil
		}
	}
}

// decodeVerb reads the object element wrapped by the verb, e.g. <domain:renew>
// inside <renew>.
func (c *commandXML) decodeVerb(d *xml.Decoder) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if c.object != "" {
				if err := d.Skip(); err != nil {
					return err
				}
				continue
			}
			c.object = objectName(t.Name.Space)
			if c.object == "domain" && c.verb == "renew" && t.Name.Local == "renew" {
				c.domainRenew = &domainRenewXML{}
				if err := d.DecodeElement(c.domainRenew, &t); err != nil {
					return err
				}
				continue
			}
			if err := d.Skip(); err != nil {
				return err
			}
		case xml.EndElement:
			return nil
		}
	}
}

func objectName(space string) string {
	switch space {
	case DomainURI:
		return "domain"
	case HostURI:
		return "host"
	case ContactURI:
		return "contact"
	case EppURI, "":
		return ""
	}
	return space
}

func (e *extensionXML) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			typ := ExtensionType{URI: t.Name.Space, Name: t.Name.Local}
			repeated := slices.Contains(e.types, typ)
			e.types = append(e.types, typ)
			var err error
			switch {
			case repeated:
				// The first occurrence is decoded; validation rejects the repeat.
				err = d.Skip()
			case typ == FeeRenewExtension:
				e.feeRenew = &feeRenewXML{}
				err = d.DecodeElement(e.feeRenew, &t)
			case typ == AllocationTokenExtension:
				var token string
				err = d.DecodeElement(&token, &t)
				e.allocationToken = &token
			case typ == MetadataExtension:
				e.metadata = &metadataXML{}
				err = d.DecodeElement(e.metadata, &t)
			default:
				err = d.Skip()
			}
			if err != nil {
				return err
			}
		case xml.EndElement:
			return nil
		}
	}
}

// Parse decodes raw into a Command. Malformed input is a 2001 syntax error;
// well-formed input naming a command the registry has no model for parses
// into a Command with only Kind set, so the flow picker can reject it.
func Parse(raw []byte) (*Command, error) {
	if len(raw) == 0 {
		return nil, ErrSyntax("empty command")
	}
	if len(raw) > maxCommandBytes {
		return nil, ErrSyntax("command too large")
	}
	var doc eppXML
	if err := xml.NewDecoder(bytes.NewReader(raw)).Decode(&doc); err != nil {
		return nil, ErrSyntax("Syntax error at line " + syntaxLine(err) + ": " + err.Error())
	}
	if doc.Command == nil || doc.Command.verb == "" {
		return nil, ErrSyntax("no command element")
	}
	in := doc.Command

	cmd := &Command{
		Kind:       kindOf(in.verb, in.object),
		ClientTRID: strings.TrimSpace(in.clientTRID),
		Raw:        raw,
	}
	if in.domainRenew != nil {
		renew, err := in.domainRenew.toModel()
		if err != nil {
			return nil, err
		}
		cmd.DomainRenew = renew
	}
	ext, err := in.extension.toModel()
	if err != nil {
		return nil, err
	}
	cmd.Extensions = ext
	return cmd, nil
}

func kindOf(verb, object string) CommandKind {
	if object == "" {
		return CommandKind(verb)
	}
	return CommandKind(object + ":" + verb)
}

func syntaxLine(err error) string {
	var se *xml.SyntaxError
	if errors.As(err, &se) {
		return strconv.Itoa(se.Line)
	}
	return "?"
}

func (r *domainRenewXML) toModel() (*DomainRenew, error) {
	name := strings.ToLower(strings.TrimSpace(r.Name))
	if name == "" {
		return nil, ErrSyntax("domain:name is required")
	}
	curExp, err := models.ParseDate(strings.TrimSpace(r.CurExpDate))
	if err != nil {
		return nil, ErrSyntax("domain:curExpDate must be a date: " + r.CurExpDate)
	}
	period := models.Period{Unit: models.PeriodYears, Value: 1}
	if v := strings.TrimSpace(r.Period.Value); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 99 {
			return nil, ErrSyntax("domain:period must be an integer between 1 and 99")
		}
		unit := models.PeriodUnit(r.Period.Unit)
		if unit != models.PeriodYears && unit != models.PeriodMonths {
			return nil, ErrSyntax("domain:period unit must be y or m")
		}
		period = models.Period{Unit: unit, Value: n}
	}
	out := &DomainRenew{Name: name, CurExpDate: curExp, Period: period}
	if r.AuthInfo != nil {
		out.AuthInfo = r.AuthInfo.Pw
	}
	return out, nil
}

func (e *extensionXML) toModel() (Extensions, error) {
	out := Extensions{Types: e.types}
	if e.feeRenew != nil {
		fr := &FeeRenew{Currency: strings.TrimSpace(e.feeRenew.Currency)}
		for _, f := range e.feeRenew.Fees {
			amount, err := decimal.NewFromString(strings.TrimSpace(f.Amount))
			if err != nil {
				return Extensions{}, ErrSyntax("fee:fee must be a decimal: " + f.Amount)
			}
			fee := Fee{Amount: amount, Description: f.Description, GracePeriod: f.GracePeriod, Applied: f.Applied}
			if f.Refundable != nil {
				b, err := parseBool(*f.Refundable)
				if err != nil {
					return Extensions{}, ErrSyntax("fee:fee refundable must be a boolean")
				}
				fee.Refundable = &b
			}
			fr.Fees = append(fr.Fees, fee)
		}
		out.FeeRenew = fr
	}
	if e.allocationToken != nil {
		out.AllocationToken = &AllocationToken{Token: strings.TrimSpace(*e.allocationToken)}
	}
	if e.metadata != nil {
		md := &Metadata{Reason: strings.TrimSpace(e.metadata.Reason)}
		if e.metadata.RequestedByRegistrar != nil {
			b, err := parseBool(*e.metadata.RequestedByRegistrar)
			if err != nil {
				return Extensions{}, ErrSyntax("metadata:requestedByRegistrar must be a boolean")
			}
			md.RequestedByRegistrar = &b
		}
		out.Metadata = md
	}
	return out, nil
}

// parseBool accepts xs:boolean lexical forms.
func parseBool(s string) (bool, error) {
	switch strings.TrimSpace(s) {
	case "1", "true":
		return true, nil
	case "0", "false":
		return false, nil
	}
	return false, fmt.Errorf("not a boolean: %q", s)
}

var passwordPattern = regexp.MustCompile(`(<(?:[\w-]+:)?(?:pw|newPW)(?:\s[^>]*)?>)([^<]*)(</(?:[\w-]+:)?(?:pw|newPW)>)`)

// Sanitize masks passwords so commands can be logged.
func Sanitize(raw []byte) string {
	return passwordPattern.ReplaceAllStringFunc(string(raw), func(m string) string {
		parts := passwordPattern.FindStringSubmatch(m)
		return parts[1] + strings.Repeat("*", len(parts[2])) + parts[3]
	})
}

// Marshal encodes a response document.
func Marshal(resp *Response) ([]byte, error) {
	doc := responseDocXML{Xmlns: EppURI}
	doc.Response.Result.Code = int(resp.Result.Code)
	doc.Response.Result.Msg = resp.Result.Message
	if resp.ResData != nil {
		doc.Response.ResData = &anyXML{Items: []any{resp.ResData}}
	}
	if len(resp.Extensions) > 0 {
		doc.Response.Extension = &anyXML{Items: resp.Extensions}
	}
	doc.Response.TrID.ClientTRID = resp.Trid.ClientTRID
	doc.Response.TrID.ServerTRID = resp.Trid.ServerTRID

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode epp response: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

type responseDocXML struct {
	XMLName  xml.Name `xml:"epp"`
	Xmlns    string   `xml:"xmlns,attr"`
	Response struct {
		Result struct {
			Code int    `xml:"code,attr"`
			Msg  string `xml:"msg"`
		} `xml:"result"`
		ResData   *anyXML `xml:"resData,omitempty"`
		Extension *anyXML `xml:"extension,omitempty"`
		TrID      struct {
			ClientTRID string `xml:"clTRID,omitempty"`
			ServerTRID string `xml:"svTRID"`
		} `xml:"trID"`
	} `xml:"response"`
}

// anyXML wraps values whose element names come from their own XMLName.
type anyXML struct {
	Items []any
}
