package models

import "bitbucket.org/mmdatafocus/listings_backend/config"

func MigrateTable() {
	db := config.GetDB()

	db.AutoMigrate(
		&User{},
		&Listing{},
		&Review{},
		&Post{},
		&PerformanceSample{},
		&SearchKeyword{},
		&AuditRecord{},
		&ProviderCredential{},
		&ListingSyncRun{},
		&ListingSyncError{},
		&Activity{},
	)
}
