// api/controller/controllers.go
package controller

import "github.com/evzone/myaccounts/api/service"

type Controllers struct {
	Auth   *AuthController
	Action *ActionController
	User   *UserController
	App    *AppController
	Org    *OrganizationController
	Wallet *WalletController
	KYC    *KYCController
	Audit  *AuditController
}

func InitializeControllers(services *service.Services) *Controllers {
	return &Controllers{
		Auth:   NewAuthController(services.Auth),
		Action: NewActionController(services.Flow),
		User:   NewUserController(services.User),
		App:    NewAppController(services.App),
		Org:    NewOrganizationController(services.Org),
		Wallet: NewWalletController(services.Wallet),
		KYC:    NewKYCController(services.KYC),
		Audit:  NewAuditController(services.Audit),
	}
}
