package domain

import (
	interfaces "qrlink/internal/domain/interfaces"
	types "qrlink/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	Fingerprint = types.Fingerprint
	ContactName = types.ContactName
	KeyPair     = types.KeyPair
	Contact     = types.Contact
	Contacts    = types.Contacts
	Opened      = types.Opened
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	KeyStore        = interfaces.KeyStore
	ContactStore    = interfaces.ContactStore
	Store           = interfaces.Store
	KeyValidator    = interfaces.KeyValidator
	CryptoProvider  = interfaces.CryptoProvider
	Cipher          = interfaces.Cipher
	IdentityService = interfaces.IdentityService
	ContactService  = interfaces.ContactService
	MessageService  = interfaces.MessageService
)
