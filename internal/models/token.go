package models

// Token is an ERC-20 token as reported by the blockchain data provider.
// Address is chain-scoped and compared case-insensitively.
type Token struct {
	Address  string      `json:"address"`
	Name     string      `json:"name"`
	Symbol   string      `json:"symbol"`
	Decimals int         `json:"decimals"`
	Type     string      `json:"type,omitempty"`
	Holders  int64       `json:"holders"`
	IconURL  string      `json:"icon_url,omitempty"`
	Price    *TokenPrice `json:"price,omitempty"`
}

type TokenPrice struct {
	Value    float64 `json:"value"`
	Currency string  `json:"currency"`
}

// Holder is a social-graph user holding a clanker token.
type Holder struct {
	FID           int64   `json:"fid"`
	Username      string  `json:"username"`
	PfpURL        string  `json:"pfpUrl"`
	QuotientScore float64 `json:"quotientScore"`
}

// ClankerToken is a token held by some of a user's mutual followers.
type ClankerToken struct {
	Address      string   `json:"address"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	ImageURL     *string  `json:"imageUrl"`
	CountHolders int      `json:"count_holders"`
	Holders      []Holder `json:"holders"`
}

// TokenResponse is the holds-clankers upstream payload.
type TokenResponse struct {
	Tokens      []ClankerToken `json:"tokens"`
	TotalTokens int            `json:"total_tokens"`
	QueriedFIDs int            `json:"queried_fids"`
	Chain       string         `json:"chain"`
}

type Follower struct {
	FID      int64  `json:"fid"`
	Username string `json:"username"`
	PfpURL   string `json:"pfp_url"`
}

// FollowerResponse is the mutuals upstream payload.
type FollowerResponse struct {
	FID             int64      `json:"fid"`
	MutualFollowers []Follower `json:"mutual_followers"`
	Count           int        `json:"count"`
}

// FIDs returns the fids of all mutual followers in response order.
func (r *FollowerResponse) FIDs() []int64 {
	out := make([]int64, 0, len(r.MutualFollowers))
	for _, f := range r.MutualFollowers {
		out = append(out, f.FID)
	}
	return out
}
