// api/service/services.go
package service

import (
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/evzone/myaccounts/api/audit"
	"github.com/evzone/myaccounts/api/config"
	"github.com/evzone/myaccounts/api/dao"
	"github.com/evzone/myaccounts/api/flow"
	"github.com/evzone/myaccounts/api/util"
)

type Services struct {
	Auth   IAuthService
	User   IUserService
	App    IAppService
	Org    IOrganizationService
	Wallet IWalletService
	KYC    IKYCService
	Flow   flow.Service
	Audit  audit.Service
}

func InitializeServices(
	driver neo4j.Driver,
	auditService audit.Service,
	validationUtil *util.ValidationUtil,
	cacheService *util.CacheService,
	notificationSvc *util.NotificationService,
	eventBus *util.EventBus,
) (*Services, error) {
	userDAO := dao.NewUserDAO(driver, auditService)
	sessionDAO := dao.NewSessionDAO(driver, auditService)
	recoveryDAO := dao.NewRecoveryCodeDAO(driver, auditService)
	appDAO := dao.NewAppDAO(driver, auditService)
	organizationDAO := dao.NewOrganizationDAO(driver, auditService)
	walletDAO := dao.NewWalletDAO(driver, auditService)
	kycDAO := dao.NewKYCDAO(driver, auditService)

	gate := flow.NewCredentialGate(userDAO, flow.RedisCodeStore{})
	executor := flow.NewActionExecutor(userDAO, sessionDAO, appDAO, recoveryDAO, notificationSvc, cacheService)
	flowManager := flow.NewManager(gate, executor, flow.RedisLocker{}, config.GetDuration("auth.flowTTL"))

	services := &Services{
		Auth:   NewAuthService(userDAO, sessionDAO, recoveryDAO, cacheService, notificationSvc),
		User:   NewUserService(userDAO, walletDAO, sessionDAO, validationUtil, cacheService, notificationSvc, eventBus),
		App:    NewAppService(appDAO, validationUtil, cacheService, notificationSvc, eventBus),
		Org:    NewOrganizationService(organizationDAO, validationUtil, eventBus),
		Wallet: NewWalletService(walletDAO, validationUtil, cacheService, notificationSvc, eventBus),
		KYC:    NewKYCService(kycDAO, userDAO, walletDAO, validationUtil, cacheService, notificationSvc),
		Flow:   flowManager,
		Audit:  auditService,
	}

	return services, nil
}
