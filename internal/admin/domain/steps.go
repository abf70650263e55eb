package domain

// Onboarding steps, in flow order. Edit mode re-enters the collection steps
// with an "edit" flag in the scratch data, so hours, zones and bank details
// share one handler between onboarding and post-onboarding edits.
const (
	StepBusinessName         = "business_name"
	StepBusinessHours        = "business_hours"
	StepBusinessHoursConfirm = "business_hours_confirm"
	StepDeliveryMethod       = "delivery_method"
	StepPickupAddress        = "pickup_address"
	StepPaymentMethods       = "payment_methods"
	StepDepositPercent       = "deposit_percent"
	StepDeliveryZones        = "delivery_zones"
	StepDeliveryZonesConfirm = "delivery_zones_confirm"
	StepBankData             = "bank_data"
	StepBankDataConfirm      = "bank_data_confirm"
	StepProducts             = "products"
	StepReview               = "review"
	StepCompleted            = "completed"

	StepEditMenu    = "edit_menu"
	StepEditName    = "edit_name"
	StepEditAddress = "edit_address"

	StepProductPausePick  = "product_pause_pick"
	StepProductEditPick   = "product_edit_pick"
	StepProductEditValue  = "product_edit_value"
	StepProductDeletePick = "product_delete_pick"
)
