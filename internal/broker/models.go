package broker

// Fill is one execution report from the Tradovate fill list. Identifier
// fields are pointers so a missing value is distinguishable from zero; the
// normalizer at the ingestion boundary validates them.
type Fill struct {
	ID         *int64  `json:"id"`
	OrderID    *int64  `json:"orderId"`
	ContractID *int64  `json:"contractId"`
	AccountID  *int64  `json:"accountId"`
	Timestamp  string  `json:"timestamp"`
	Action     string  `json:"action"` // "Buy" or "Sell", case varies
	Qty        int     `json:"qty"`
	Price      float64 `json:"price"`
	Active     bool    `json:"active"`
	External   bool    `json:"external"`
}

// Order is one entry from the Tradovate order list, carrying the bracket and
// OCO linkage used to group related orders.
type Order struct {
	ID         *int64 `json:"id"`
	AccountID  *int64 `json:"accountId"`
	ContractID *int64 `json:"contractId"`
	ParentID   *int64 `json:"parentId"`
	LinkedID   *int64 `json:"linkedId"`
	OcoID      *int64 `json:"ocoId"`
	Action     string `json:"action"`
	OrdStatus  string `json:"ordStatus"`
}

// contractItem is the contract lookup response. Different API versions expose
// the symbol under different field names.
type contractItem struct {
	Name         string `json:"name"`
	Symbol       string `json:"symbol"`
	ContractName string `json:"contractName"`
	RootSymbol   string `json:"rootSymbol"`
}

type accessTokenRequest struct {
	Name       string `json:"name"`
	Password   string `json:"password"`
	AppID      string `json:"appId"`
	AppVersion string `json:"appVersion"`
	DeviceID   string `json:"deviceId"`
	CID        string `json:"cid"`
	Sec        string `json:"sec"`
}

type accessTokenResponse struct {
	AccessToken    string `json:"accessToken"`
	ExpirationTime string `json:"expirationTime"`
	ErrorText      string `json:"errorText"`
}
