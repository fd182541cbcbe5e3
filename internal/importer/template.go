// Package importer turns client spreadsheets into validated import rows and
// submits them to the CRM one at a time.
package importer

const (
	HeaderSource          = "Source"
	HeaderSourceValue     = "Source Value"
	HeaderClientName      = "Client Name"
	HeaderClientType      = "Client Type"
	HeaderPaymentOffering = "Payment Offering"
	HeaderWebsite         = "Website"
	HeaderClientGeography = "Client Geography"
	HeaderTxnVolume       = "Txn Volume / per day in million"
	HeaderProductTagInfo  = "Product Tag Info"
	HeaderStreetAddress   = "Street Address"
	HeaderCity            = "City"
	HeaderState           = "State"
	HeaderCountry         = "Country"
	HeaderContactName     = "Contact Name"
	HeaderDesignation     = "Designation"
	HeaderPhonePrefix     = "Phone Prefix"
	HeaderContactPhone    = "Contact Phone"
	HeaderContactEmail    = "Contact Email"
	HeaderLinkedIn        = "LinkedIn Profile Link"
)

var templateHeaders = [...]string{
	HeaderSource,
	HeaderSourceValue,
	HeaderClientName,
	HeaderClientType,
	HeaderPaymentOffering,
	HeaderWebsite,
	HeaderClientGeography,
	HeaderTxnVolume,
	HeaderProductTagInfo,
	HeaderStreetAddress,
	HeaderCity,
	HeaderState,
	HeaderCountry,
	HeaderContactName,
	HeaderDesignation,
	HeaderPhonePrefix,
	HeaderContactPhone,
	HeaderContactEmail,
	HeaderLinkedIn,
}

// TemplateHeaders returns the ordered header row of the import template.
// The returned slice is a copy.
func TemplateHeaders() []string {
	out := make([]string, len(templateHeaders))
	copy(out, templateHeaders[:])
	return out
}

// Option lists offered as drop-downs in the downloadable template.
var (
	ClientTypes       = []string{"enterprise", "mid-market", "smb", "startup"}
	ClientGeographies = []string{"Domestic", "International", "Both"}
	ClientSources     = []string{"LinkedIn-Inbound", "LinkedIn-Outbound", "Referral", "Website", "Event", "Cold Outreach"}
	PaymentOfferings  = []string{"UPI Payments", "Online Payments", "Payouts", "Cards", "Net Banking"}
)
