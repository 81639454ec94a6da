package models

// StatusValue is an EPP object status.
type StatusValue string

const (
	StatusOK                       StatusValue = "ok"
	StatusInactive                 StatusValue = "inactive"
	StatusClientDeleteProhibited   StatusValue = "clientDeleteProhibited"
	StatusClientHold               StatusValue = "clientHold"
	StatusClientRenewProhibited    StatusValue = "clientRenewProhibited"
	StatusClientTransferProhibited StatusValue = "clientTransferProhibited"
	StatusClientUpdateProhibited   StatusValue = "clientUpdateProhibited"
	StatusPendingCreate            StatusValue = "pendingCreate"
	StatusPendingDelete            StatusValue = "pendingDelete"
	StatusPendingTransfer          StatusValue = "pendingTransfer"
	StatusPendingUpdate            StatusValue = "pendingUpdate"
	StatusServerDeleteProhibited   StatusValue = "serverDeleteProhibited"
	StatusServerHold               StatusValue = "serverHold"
	StatusServerRenewProhibited    StatusValue = "serverRenewProhibited"
	StatusServerTransferProhibited StatusValue = "serverTransferProhibited"
	StatusServerUpdateProhibited   StatusValue = "serverUpdateProhibited"
)

// ContainsStatus reports whether statuses includes s.
func ContainsStatus(statuses []StatusValue, s StatusValue) bool {
	for _, v := range statuses {
		if v == s {
			return true
		}
	}
	return false
}
