package handler

import (
	"github.com/go-faster/errors"

	"github.com/xenking/mercado-storefront/internal/domain/auth"
	"github.com/xenking/mercado-storefront/internal/domain/cart"
	"github.com/xenking/mercado-storefront/internal/domain/order"
	"github.com/xenking/mercado-storefront/internal/domain/product"
	"github.com/xenking/mercado-storefront/internal/graphql"
	"github.com/xenking/mercado-storefront/internal/storage/remote"
)

const (
	msgAccountCreated   = "Account created! Please login."
	msgAddedToCart      = "Added to cart!"
	msgOrderPlaced      = "Order placed successfully!"
	msgProductCreated   = "Product created successfully!"
	msgProductRemoved   = "Product removed."
	msgUserRemoved      = "User removed."
	msgLoginRequired    = "Please login to add items to cart"
	msgSessionExpired   = "Your session has expired. Please login again."
	msgTooManyAttempts  = "Too many login attempts. Please try again later."
	msgUploadFailed     = "Failed to upload image"
	msgLoginFailed      = "Login failed. Please try again."
	prefixRegister      = "Registration failed: "
	prefixAddToCart     = "Failed to add to cart: "
	prefixUpdateCart    = "Failed to update cart: "
	prefixCheckout      = "Checkout failed: "
	prefixCreateProduct = "Failed to create product. "
	prefixRemoveProduct = "Failed to remove product: "
	prefixRemoveUser    = "Failed to remove user: "
)

// localMessage maps failures detected before any request is sent.
func localMessage(err error) (string, bool) {
	if e, ok := errors.Into[*product.MissingVariantsError](err); ok {
		return e.Error(), true
	}
	if e, ok := errors.Into[*product.InvalidOptionError](err); ok {
		return e.Error(), true
	}
	if e, ok := errors.Into[*order.IncompleteAddressError](err); ok {
		return e.Error(), true
	}
	switch {
	case errors.Is(err, auth.ErrPasswordMismatch):
		return "Passwords do not match", true
	case errors.Is(err, auth.ErrEmailRequired):
		return "Email is required", true
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "Invalid credentials", true
	case errors.Is(err, auth.ErrMissingToken):
		return "Authentication token not received.", true
	case errors.Is(err, cart.ErrMinimumQuantity):
		return "Quantity cannot go below 1", true
	case errors.Is(err, cart.ErrItemNotFound):
		return "This item is no longer in your bag", true
	case errors.Is(err, order.ErrEmptyCart):
		return "Your bag is empty", true
	case errors.Is(err, remote.ErrUploadFailed):
		return msgUploadFailed, true
	}
	return "", false
}

// remoteMessage describes a failure reported by, or on the way to, the API.
func remoteMessage(err error) string {
	if msg := graphql.UserMessage(err); msg != "" {
		return msg
	}
	if gqlErr, ok := errors.Into[*graphql.Error](err); ok {
		return gqlErr.Error()
	}
	if errors.Is(err, graphql.ErrTransport) {
		return "the store is unreachable"
	}
	return "Unknown error"
}

// failureMessage is the banner text for a failed action.
func failureMessage(prefix string, err error) string {
	if msg, ok := localMessage(err); ok {
		return msg
	}
	return prefix + remoteMessage(err)
}

// registerMessage shows server side validation messages verbatim.
func registerMessage(err error) string {
	if msg, ok := localMessage(err); ok {
		return msg
	}
	if msg := graphql.UserMessage(err); msg != "" {
		return msg
	}
	return prefixRegister + remoteMessage(err)
}
