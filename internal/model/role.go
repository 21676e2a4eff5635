package model

// Built-in role names. The effective role sets used for authorization come from configuration.
const (
	RoleAdmin     = "admin"
	RoleChairman  = "ketua"
	RoleTreasurer = "bendahara"
	RoleSecretary = "sekretaris"
	RoleResident  = "warga"
)
