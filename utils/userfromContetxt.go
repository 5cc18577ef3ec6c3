package utils

import (
	"bakehouse/globals"
	"net/http"
)

func GetUserIDFromRequest(r *http.Request) string {
	requestingUserID, ok := r.Context().Value(globals.UserIDKey).(string)
	if !ok || requestingUserID == "" {
		return ""
	}
	return requestingUserID
}

func GetRoleFromRequest(r *http.Request) string {
	role, _ := r.Context().Value(globals.RoleKey).(string)
	return role
}

func GetShopIDFromRequest(r *http.Request) string {
	shopID, _ := r.Context().Value(globals.ShopIDKey).(string)
	return shopID
}

// CanActForShop reports whether the caller may see or change shopID's
// orders: admins for any shop, shop staff only for the shop in their token.
func CanActForShop(r *http.Request, shopID string) bool {
	switch GetRoleFromRequest(r) {
	case globals.RoleAdmin:
		return true
	case globals.RoleShop:
		own := GetShopIDFromRequest(r)
		return own != "" && own == shopID
	}
	return false
}
