package model

// ProductList is one page of products.
type ProductList struct {
	Products   []Product `json:"products"`
	Pagination Page      `json:"pagination"`
}

// OrderList is one page of orders.
type OrderList struct {
	Orders     []Order `json:"orders"`
	Pagination Page    `json:"pagination"`
}

// UserList is one page of users.
type UserList struct {
	Users      []User `json:"users"`
	Pagination Page   `json:"pagination"`
}

// SellerList is one page of seller profiles.
type SellerList struct {
	Sellers    []SellerProfile `json:"sellers"`
	Pagination Page            `json:"pagination"`
}
