package entity

// Report status constants
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusRejected  = "rejected"
)

// Default values for optional report fields
const (
	DefaultDelivery       = "Belgilanmagan"
	DefaultNote           = "Yo'q"
	DefaultSecondaryPhone = "Mavjud emas"
)

// SettingAllDataSpreadsheet is the bot_settings key of the global all-data ledger
const SettingAllDataSpreadsheet = "all_data_spreadsheet_id"
