package api

import (
	"encoding/json"
	"fmt"
	"strconv"
)

/*
{
    "success": true,
    "data": {
        "records": [
            {
                "id": "12345",
                "name": "My Rig",
                "type": "scrypt",
                "status": "available",
                "price": "0.00100000",
                "hashrate": "1000",
                "rating": "4.8",
                ...
            }
        ]
    },
    "version": "1"
}
*/

// Response is the envelope every MRR v1 call returns. Data depends on the method.
type Response struct {
	Success bool            `json:"success"`
	Version string          `json:"version,omitempty"`
	Data    json.RawMessage `json:"data"`
}

// Rig is a single rig record, passed through untouched.
type Rig = json.RawMessage

type RigList struct {
	Records []Rig `json:"records"`
}

type Balance struct {
	Confirmed   string `json:"confirmed"`
	Unconfirmed string `json:"unconfirmed"`
}

/*
{'workername': 'MjiJVx588Phk3hzrzyiiCRShSXAEtxKP6i', 'port': '3003',
 'host':'magnetpool.io', 'name': 'magnet500', 'id': 95497, 'password': ''}
*/

type Pool struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Host       string `json:"host"`
	Port       string `json:"port"`
	WorkerName string `json:"workername"`
	Password   string `json:"password"`
}

type Profile struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Credentials identify an MRR account. The secret never leaves the process.
type Credentials struct {
	Key    string
	Secret string
}

// ListFilters are the optional filters accepted by the rig list method.
// Nil pointers and zero values are left out of the request.
type ListFilters struct {
	MinHash     *float64 `form:"min_hash"`
	MaxHash     *float64 `form:"max_hash"`
	MinCost     *float64 `form:"min_cost"`
	MaxCost     *float64 `form:"max_cost"`
	ShowOffline string   `form:"showoff"` // yes or no
	Order       string   `form:"order"`
	OrderDir    string   `form:"orderdir"`
	Page        int      `form:"page"`
}

var listOrders = map[string]bool{
	"price": true, "hashrate": true, "minhrs": true,
	"maxhrs": true, "rating": true, "name": true,
}

// Validate checks the structure of the filters. Values themselves are the
// remote's business.
func (f *ListFilters) Validate() error {
	if f == nil {
		return nil
	}
	if f.Order != "" && !listOrders[f.Order] {
		return fmt.Errorf("%w: unknown order %q", ErrInvalidFilter, f.Order)
	}
	if f.OrderDir != "" {
		if f.Order == "" {
			return fmt.Errorf("%w: orderdir requires order", ErrInvalidFilter)
		}
		if f.OrderDir != "asc" && f.OrderDir != "desc" {
			return fmt.Errorf("%w: unknown orderdir %q", ErrInvalidFilter, f.OrderDir)
		}
	}
	if f.ShowOffline != "" && f.ShowOffline != "yes" && f.ShowOffline != "no" {
		return fmt.Errorf("%w: showoff must be yes or no, got %q", ErrInvalidFilter, f.ShowOffline)
	}
	if f.Page < 0 {
		return fmt.Errorf("%w: negative page", ErrInvalidFilter)
	}
	return nil
}

func (f *ListFilters) apply(p Params) {
	if f == nil {
		return
	}
	p.setFloat("min_hash", f.MinHash)
	p.setFloat("max_hash", f.MaxHash)
	p.setFloat("min_cost", f.MinCost)
	p.setFloat("max_cost", f.MaxCost)
	if f.ShowOffline != "" {
		p.Set("showoff", f.ShowOffline)
	}
	if f.Order != "" {
		p.Set("order", f.Order)
	}
	if f.OrderDir != "" {
		p.Set("orderdir", f.OrderDir)
	}
	if f.Page > 0 {
		p.Set("page", strconv.Itoa(f.Page))
	}
}

// UpdateRigParams change one of your own rigs. ID plus at least one other
// field is required.
type UpdateRigParams struct {
	ID       int
	Name     *string
	Status   *string // available or disabled
	Hashrate *float64
	HashType *string // kh, mh, gh or th; needs Hashrate
	Price    *float64
	MinHours *int
	MaxHours *int
}

func (u UpdateRigParams) Validate() error {
	if u.Name == nil && u.Status == nil && u.Hashrate == nil && u.HashType == nil &&
		u.Price == nil && u.MinHours == nil && u.MaxHours == nil {
		return ErrNothingToUpdate
	}
	if u.Status != nil && *u.Status != "available" && *u.Status != "disabled" {
		return fmt.Errorf("invalid status %q", *u.Status)
	}
	if u.HashType != nil {
		if u.Hashrate == nil {
			return fmt.Errorf("hash_type requires hashrate")
		}
		switch *u.HashType {
		case "kh", "mh", "gh", "th":
		default:
			return fmt.Errorf("invalid hash_type %q", *u.HashType)
		}
	}
	return nil
}

func (u UpdateRigParams) apply(p Params) {
	p.Set("id", strconv.Itoa(u.ID))
	if u.Name != nil {
		p.Set("name", *u.Name)
	}
	if u.Status != nil {
		p.Set("status", *u.Status)
	}
	p.setFloat("hashrate", u.Hashrate)
	if u.HashType != nil {
		p.Set("hash_type", *u.HashType)
	}
	p.setFloat("price", u.Price)
	if u.MinHours != nil {
		p.Set("min_hours", strconv.Itoa(*u.MinHours))
	}
	if u.MaxHours != nil {
		p.Set("max_hours", strconv.Itoa(*u.MaxHours))
	}
}
