// api/dao/user_dao.go
package dao

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/evzone/myaccounts/api/audit"
	accounts_errors "github.com/evzone/myaccounts/api/errors"
	logger "github.com/evzone/myaccounts/api/logging"
	"github.com/evzone/myaccounts/api/model"
	helper_util "github.com/evzone/myaccounts/api/util/helper"
)

type UserDAO struct {
	Driver       neo4j.Driver
	AuditService audit.Service
}

func NewUserDAO(driver neo4j.Driver, auditService audit.Service) *UserDAO {
	dao := &UserDAO{Driver: driver, AuditService: auditService}
	// Ensure unique constraint on User ID
	ctx := context.Background()
	if err := dao.EnsureUniqueConstraint(ctx); err != nil {
		logger.Fatal("Failed to ensure unique constraint for User", zap.Error(err))
	}
	return dao
}

func (dao *UserDAO) EnsureUniqueConstraint(ctx context.Context) error {
	logger.Info("Ensuring unique constraint on User ID")
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        CREATE CONSTRAINT unique_user_id IF NOT EXISTS
        FOR (u:User) REQUIRE u.id IS UNIQUE
        `
		_, err := transaction.Run(query, nil)
		return nil, err
	})

	if err != nil {
		logger.Error("Failed to ensure unique constraint on User ID", zap.Error(err))
		return err
	}

	return nil
}

func (dao *UserDAO) CreateUser(ctx context.Context, user model.User) (string, error) {
	start := time.Now()
	logger.Info("Creating new user", zap.String("email", user.Email))
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.Status == "" {
		user.Status = model.UserStatusPendingKYC
	}
	if user.Role == "" {
		user.Role = model.RoleMember
	}

	result, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MERGE (u:User {id: $id})
        ON CREATE SET u += $props
        ON MATCH SET u += $props
        RETURN u.id as id
        `

		attributesJSON, _ := json.Marshal(user.Attributes)

		params := map[string]interface{}{
			"id": user.ID,
			"props": map[string]interface{}{
				"name":           user.Name,
				"email":          user.Email,
				"phone":          user.Phone,
				"status":         user.Status,
				"role":           user.Role,
				"organizationID": user.OrganizationID,
				"passwordHash":   user.PasswordHash,
				"mfaEnrolled":    user.MFAEnrolled,
				"mfaChannels":    strings.Join(user.MFAChannels, ","),
				"attributes":     string(attributesJSON),
				"createdAt":      time.Now().Format(time.RFC3339),
				"updatedAt":      time.Now().Format(time.RFC3339),
			},
		}

		result, err := transaction.Run(query, params)
		if err != nil {
			return nil, accounts_errors.ErrDatabaseOperation
		}

		if result.Next() {
			return result.Record().Values[0], nil
		}

		return nil, accounts_errors.ErrInternalServer
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to create user",
			zap.Error(err),
			zap.String("email", user.Email),
			zap.Duration("duration", duration))
		return "", err
	}

	userID := fmt.Sprintf("%v", result)
	logger.Info("User created successfully",
		zap.String("userID", userID),
		zap.Duration("duration", duration))

	// Audit trail
	entry := audit.Entry{
		Timestamp:     time.Now(),
		ActorID:       actorID(ctx),
		Action:        "CREATE_USER",
		TargetType:    "user",
		TargetID:      userID,
		Success:       true,
		ChangeDetails: createUserChangeDetails(nil, &user),
	}
	if err := dao.AuditService.Record(ctx, entry); err != nil {
		logger.Error("Failed to create audit log", zap.Error(err))
	}

	return userID, nil
}

func (dao *UserDAO) UpdateUser(ctx context.Context, user model.User) (*model.User, error) {
	start := time.Now()
	logger.Info("Updating user", zap.String("userID", user.ID))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	var updatedUser *model.User
	oldUser, err := dao.GetUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	_, err = session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (u:User {id: $id})
        SET u += $props
        RETURN u
        `

		attributesJSON, _ := json.Marshal(user.Attributes)

		params := map[string]interface{}{
			"id": user.ID,
			"props": map[string]interface{}{
				"name":           user.Name,
				"email":          user.Email,
				"phone":          user.Phone,
				"organizationID": user.OrganizationID,
				"attributes":     string(attributesJSON),
				"updatedAt":      time.Now().Format(time.RFC3339),
			},
		}

		result, err := transaction.Run(query, params)
		if err != nil {
			return nil, accounts_errors.ErrDatabaseOperation
		}

		if result.Next() {
			node := result.Record().Values[0].(neo4j.Node)
			updatedUser, err = mapNodeToUser(node)
			if err != nil {
				return nil, fmt.Errorf("failed to map user node to struct: %w", err)
			}
			return nil, nil
		}

		return nil, accounts_errors.ErrUserNotFound
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to update user",
			zap.Error(err),
			zap.String("userID", user.ID),
			zap.Duration("duration", duration))
		return nil, err
	}

	logger.Info("User updated successfully",
		zap.String("userID", user.ID),
		zap.Duration("duration", duration))

	// Audit trail
	entry := audit.Entry{
		Timestamp:     time.Now(),
		ActorID:       actorID(ctx),
		Action:        "UPDATE_USER",
		TargetType:    "user",
		TargetID:      user.ID,
		Success:       true,
		ChangeDetails: createUserChangeDetails(oldUser, updatedUser),
	}
	if err := dao.AuditService.Record(ctx, entry); err != nil {
		logger.Error("Failed to create audit log", zap.Error(err))
	}

	return updatedUser, nil
}

// SetUserStatus flips the account status. Applying the status the account
// already has is a successful no-op; the previous status is returned so
// callers can tell the difference.
func (dao *UserDAO) SetUserStatus(ctx context.Context, userID, status, reason string) (string, error) {
	start := time.Now()
	logger.Info("Setting user status",
		zap.String("userID", userID),
		zap.String("status", status))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	result, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (u:User {id: $id})
        WITH u, u.status AS previous
        SET u.status = $status, u.updatedAt = $now
        RETURN previous
        `
		result, err := transaction.Run(query, map[string]interface{}{
			"id":     userID,
			"status": status,
			"now":    time.Now().Format(time.RFC3339),
		})
		if err != nil {
			return nil, accounts_errors.ErrDatabaseOperation
		}

		if result.Next() {
			return result.Record().Values[0], nil
		}

		return nil, accounts_errors.ErrUserNotFound
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to set user status",
			zap.Error(err),
			zap.String("userID", userID),
			zap.Duration("duration", duration))
		return "", err
	}

	previous := fmt.Sprintf("%v", result)
	logger.Info("User status updated",
		zap.String("userID", userID),
		zap.String("previous", previous),
		zap.String("status", status),
		zap.Duration("duration", duration))

	// Audit trail
	details, _ := json.Marshal(map[string]string{"old": previous, "new": status})
	entry := audit.Entry{
		Timestamp:     time.Now(),
		ActorID:       actorID(ctx),
		Action:        "SET_USER_STATUS",
		TargetType:    "user",
		TargetID:      userID,
		Success:       true,
		Reason:        reason,
		ChangeDetails: details,
	}
	if err := dao.AuditService.Record(ctx, entry); err != nil {
		logger.Error("Failed to create audit log", zap.Error(err))
	}

	return previous, nil
}

// SetPasswordHash replaces the stored credential hash.
func (dao *UserDAO) SetPasswordHash(ctx context.Context, userID, hash string) error {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (u:User {id: $id})
        SET u.passwordHash = $hash, u.updatedAt = $now
        RETURN u.id
        `
		result, err := transaction.Run(query, map[string]interface{}{
			"id":   userID,
			"hash": hash,
			"now":  time.Now().Format(time.RFC3339),
		})
		if err != nil {
			return nil, accounts_errors.ErrDatabaseOperation
		}
		if result.Next() {
			return nil, nil
		}
		return nil, accounts_errors.ErrUserNotFound
	})

	if err != nil {
		logger.Error("Failed to set password hash", zap.Error(err), zap.String("userID", userID))
		return err
	}

	entry := audit.Entry{
		Timestamp:  time.Now(),
		ActorID:    actorID(ctx),
		Action:     "SET_PASSWORD",
		TargetType: "user",
		TargetID:   userID,
		Success:    true,
	}
	if err := dao.AuditService.Record(ctx, entry); err != nil {
		logger.Error("Failed to create audit log", zap.Error(err))
	}

	return nil
}

// SetMFAEnrollment records the user's MFA channels; an empty channel list
// clears enrollment.
func (dao *UserDAO) SetMFAEnrollment(ctx context.Context, userID string, channels []string) error {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (u:User {id: $id})
        SET u.mfaEnrolled = $enrolled, u.mfaChannels = $channels, u.updatedAt = $now
        RETURN u.id
        `
		result, err := transaction.Run(query, map[string]interface{}{
			"id":       userID,
			"enrolled": len(channels) > 0,
			"channels": strings.Join(channels, ","),
			"now":      time.Now().Format(time.RFC3339),
		})
		if err != nil {
			return nil, accounts_errors.ErrDatabaseOperation
		}
		if result.Next() {
			return nil, nil
		}
		return nil, accounts_errors.ErrUserNotFound
	})

	if err != nil {
		logger.Error("Failed to set MFA enrollment", zap.Error(err), zap.String("userID", userID))
		return err
	}

	entry := audit.Entry{
		Timestamp:  time.Now(),
		ActorID:    actorID(ctx),
		Action:     "SET_MFA_ENROLLMENT",
		TargetType: "user",
		TargetID:   userID,
		Success:    true,
	}
	if err := dao.AuditService.Record(ctx, entry); err != nil {
		logger.Error("Failed to create audit log", zap.Error(err))
	}

	return nil
}

func (dao *UserDAO) GetUser(ctx context.Context, userID string) (*model.User, error) {
	start := time.Now()

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	query := `
    MATCH (u:User {id: $id})
    RETURN u
    `
	result, err := session.Run(query, map[string]interface{}{"id": userID})
	if err != nil {
		logger.Error("Failed to execute get user query",
			zap.Error(err),
			zap.String("userID", userID),
			zap.Duration("duration", time.Since(start)))
		return nil, accounts_errors.ErrDatabaseOperation
	}

	if result.Next() {
		node := result.Record().Values[0].(neo4j.Node)
		user, err := mapNodeToUser(node)
		if err != nil {
			logger.Error("Failed to map user node to struct",
				zap.Error(err),
				zap.String("userID", userID))
			return nil, accounts_errors.ErrInternalServer
		}
		return user, nil
	}

	logger.Warn("User not found",
		zap.String("userID", userID),
		zap.Duration("duration", time.Since(start)))
	return nil, accounts_errors.ErrUserNotFound
}

func (dao *UserDAO) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	query := `
    MATCH (u:User {email: $email})
    RETURN u
    `
	result, err := session.Run(query, map[string]interface{}{"email": email})
	if err != nil {
		logger.Error("Failed to execute get user by email query", zap.Error(err))
		return nil, accounts_errors.ErrDatabaseOperation
	}

	if result.Next() {
		node := result.Record().Values[0].(neo4j.Node)
		user, err := mapNodeToUser(node)
		if err != nil {
			return nil, accounts_errors.ErrInternalServer
		}
		return user, nil
	}

	return nil, accounts_errors.ErrUserNotFound
}

func (dao *UserDAO) ListUsers(ctx context.Context, limit int, offset int) ([]*model.User, error) {
	start := time.Now()

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	query := `
    MATCH (u:User)
    RETURN u
    ORDER BY u.createdAt DESC
    SKIP $offset
    LIMIT $limit
    `
	result, err := session.Run(query, map[string]interface{}{
		"limit":  limit,
		"offset": offset,
	})
	if err != nil {
		logger.Error("Failed to execute list users query",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return nil, accounts_errors.ErrDatabaseOperation
	}

	var users []*model.User
	for result.Next() {
		node := result.Record().Values[0].(neo4j.Node)
		user, err := mapNodeToUser(node)
		if err != nil {
			return nil, accounts_errors.ErrInternalServer
		}
		users = append(users, user)
	}

	logger.Info("Users listed successfully",
		zap.Int("count", len(users)),
		zap.Duration("duration", time.Since(start)))

	return users, nil
}

func (dao *UserDAO) SearchUsers(ctx context.Context, criteria model.UserSearchCriteria) ([]*model.User, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	conditions := []string{}
	params := map[string]interface{}{
		"limit":  criteria.Limit,
		"offset": criteria.Offset,
	}
	if criteria.Email != "" {
		conditions = append(conditions, "u.email CONTAINS $email")
		params["email"] = criteria.Email
	}
	if criteria.Name != "" {
		conditions = append(conditions, "toLower(u.name) CONTAINS toLower($name)")
		params["name"] = criteria.Name
	}
	if criteria.Status != "" {
		conditions = append(conditions, "u.status = $status")
		params["status"] = criteria.Status
	}
	if criteria.Role != "" {
		conditions = append(conditions, "u.role = $role")
		params["role"] = criteria.Role
	}
	if criteria.OrganizationID != "" {
		conditions = append(conditions, "u.organizationID = $organizationID")
		params["organizationID"] = criteria.OrganizationID
	}

	query := "MATCH (u:User)"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += `
    RETURN u
    ORDER BY u.createdAt DESC
    SKIP $offset
    LIMIT $limit
    `

	result, err := session.Run(query, params)
	if err != nil {
		logger.Error("Failed to execute user search query", zap.Error(err))
		return nil, accounts_errors.ErrDatabaseOperation
	}

	var users []*model.User
	for result.Next() {
		node := result.Record().Values[0].(neo4j.Node)
		user, err := mapNodeToUser(node)
		if err != nil {
			return nil, accounts_errors.ErrInternalServer
		}
		users = append(users, user)
	}

	return users, nil
}

// AddPasskey attaches a registered WebAuthn credential to the user.
func (dao *UserDAO) AddPasskey(ctx context.Context, passkey model.Passkey) (string, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	if passkey.ID == "" {
		passkey.ID = uuid.New().String()
	}

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (u:User {id: $userID})
        CREATE (p:Passkey {id: $id, label: $label, attestation: $attestation, createdAt: $createdAt})
        CREATE (u)-[:HAS_PASSKEY]->(p)
        RETURN p.id
        `
		result, err := transaction.Run(query, map[string]interface{}{
			"userID":      passkey.UserID,
			"id":          passkey.ID,
			"label":       passkey.Label,
			"attestation": string(passkey.Attestation),
			"createdAt":   time.Now().Format(time.RFC3339),
		})
		if err != nil {
			return nil, accounts_errors.ErrDatabaseOperation
		}
		if result.Next() {
			return nil, nil
		}
		return nil, accounts_errors.ErrUserNotFound
	})

	if err != nil {
		logger.Error("Failed to add passkey", zap.Error(err), zap.String("userID", passkey.UserID))
		return "", err
	}

	entry := audit.Entry{
		Timestamp:  time.Now(),
		ActorID:    actorID(ctx),
		Action:     "REGISTER_PASSKEY",
		TargetType: "user",
		TargetID:   passkey.UserID,
		Success:    true,
	}
	if err := dao.AuditService.Record(ctx, entry); err != nil {
		logger.Error("Failed to create audit log", zap.Error(err))
	}

	return passkey.ID, nil
}

func (dao *UserDAO) CountPasskeys(ctx context.Context, userID string) (int, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	query := `
    MATCH (u:User {id: $id})-[:HAS_PASSKEY]->(p:Passkey)
    RETURN count(p)
    `
	result, err := session.Run(query, map[string]interface{}{"id": userID})
	if err != nil {
		return 0, accounts_errors.ErrDatabaseOperation
	}
	if result.Next() {
		return int(result.Record().Values[0].(int64)), nil
	}
	return 0, nil
}

// Helper function to map Neo4j Node to User struct
func mapNodeToUser(node neo4j.Node) (*model.User, error) {
	props := node.Props
	user := &model.User{}

	user.ID = stringProp(props, "id")
	user.Name = stringProp(props, "name")
	user.Email = stringProp(props, "email")
	user.Phone = stringProp(props, "phone")
	user.Status = stringProp(props, "status")
	user.Role = stringProp(props, "role")
	user.OrganizationID = stringProp(props, "organizationID")
	user.PasswordHash = stringProp(props, "passwordHash")
	user.MFAEnrolled = boolProp(props, "mfaEnrolled")
	if channels := stringProp(props, "mfaChannels"); channels != "" {
		user.MFAChannels = strings.Split(channels, ",")
	}

	if attributesJSON := stringProp(props, "attributes"); attributesJSON != "" {
		if err := json.Unmarshal([]byte(attributesJSON), &user.Attributes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal user attributes: %w", err)
		}
	}

	var err error
	if user.CreatedAt, err = helper_util.ParseTime(stringProp(props, "createdAt")); err != nil {
		return nil, fmt.Errorf("failed to parse createdAt: %w", err)
	}
	if user.UpdatedAt, err = helper_util.ParseTime(stringProp(props, "updatedAt")); err != nil {
		return nil, fmt.Errorf("failed to parse updatedAt: %w", err)
	}

	return user, nil
}

// Helper function to create change details for audit log
func createUserChangeDetails(oldUser, newUser *model.User) json.RawMessage {
	changes := make(map[string]interface{})
	if oldUser == nil {
		changes["action"] = "created"
	} else if newUser == nil {
		changes["action"] = "deleted"
	} else {
		changes["action"] = "updated"
		if oldUser.Name != newUser.Name {
			changes["name"] = map[string]string{"old": oldUser.Name, "new": newUser.Name}
		}
		if oldUser.Email != newUser.Email {
			changes["email"] = map[string]string{"old": oldUser.Email, "new": newUser.Email}
		}
		if oldUser.Status != newUser.Status {
			changes["status"] = map[string]string{"old": oldUser.Status, "new": newUser.Status}
		}
	}
	changeDetails, _ := json.Marshal(changes)
	return changeDetails
}
