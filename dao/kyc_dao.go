// api/dao/kyc_dao.go
package dao

import (
	"context"
	"fmt"
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

type KYCDAO struct {
	Driver       neo4j.Driver
	AuditService audit.Service
}

func NewKYCDAO(driver neo4j.Driver, auditService audit.Service) *KYCDAO {
	return &KYCDAO{Driver: driver, AuditService: auditService}
}

func (dao *KYCDAO) CreateSubmission(ctx context.Context, submission model.KYCSubmission) (string, error) {
	start := time.Now()
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	if submission.ID == "" {
		submission.ID = uuid.New().String()
	}
	submission.Status = model.KYCStatusPending

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		// A second submission while one is still pending would let a user
		// queue conflicting documents, so it is rejected here.
		query := `
        MATCH (u:User {id: $userID})
        OPTIONAL MATCH (u)-[:SUBMITTED]->(p:KYCSubmission {status: $pending})
        RETURN u.id, p.id
        `
		result, err := transaction.Run(query, map[string]interface{}{
			"userID":  submission.UserID,
			"pending": model.KYCStatusPending,
		})
		if err != nil {
			return nil, accounts_errors.ErrDatabaseOperation
		}
		if !result.Next() {
			return nil, accounts_errors.ErrUserNotFound
		}
		if result.Record().Values[1] != nil {
			return nil, accounts_errors.ErrKYCPending
		}

		query = `
        MATCH (u:User {id: $userID})
        CREATE (k:KYCSubmission {id: $id, userID: $userID, documentType: $documentType,
                documentRef: $documentRef, selfieRef: $selfieRef, country: $country,
                status: $status, submittedAt: $now})
        CREATE (u)-[:SUBMITTED]->(k)
        `
		_, err = transaction.Run(query, map[string]interface{}{
			"id":           submission.ID,
			"userID":       submission.UserID,
			"documentType": submission.DocumentType,
			"documentRef":  submission.DocumentRef,
			"selfieRef":    submission.SelfieRef,
			"country":      submission.Country,
			"status":       submission.Status,
			"now":          time.Now().Format(time.RFC3339),
		})
		if err != nil {
			return nil, accounts_errors.ErrDatabaseOperation
		}
		return nil, nil
	})

	if err != nil {
		logger.Error("Failed to create KYC submission", zap.Error(err), zap.String("userID", submission.UserID))
		return "", err
	}

	logger.Info("KYC submission created",
		zap.String("submissionID", submission.ID),
		zap.String("userID", submission.UserID),
		zap.Duration("duration", time.Since(start)))

	entry := audit.Entry{
		Timestamp:  time.Now(),
		ActorID:    actorID(ctx),
		Action:     "CREATE_KYC_SUBMISSION",
		TargetType: "kyc_submission",
		TargetID:   submission.ID,
		Success:    true,
	}
	if err := dao.AuditService.Record(ctx, entry); err != nil {
		logger.Error("Failed to create audit log", zap.Error(err))
	}

	return submission.ID, nil
}

func (dao *KYCDAO) GetSubmission(ctx context.Context, submissionID string) (*model.KYCSubmission, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	query := `
    MATCH (k:KYCSubmission {id: $id})
    RETURN k
    `
	result, err := session.Run(query, map[string]interface{}{"id": submissionID})
	if err != nil {
		logger.Error("Failed to execute get KYC submission query", zap.Error(err), zap.String("submissionID", submissionID))
		return nil, accounts_errors.ErrDatabaseOperation
	}

	if result.Next() {
		node := result.Record().Values[0].(neo4j.Node)
		submission, err := mapNodeToKYCSubmission(node)
		if err != nil {
			return nil, accounts_errors.ErrInternalServer
		}
		return submission, nil
	}

	return nil, accounts_errors.ErrKYCNotFound
}

// ListSubmissions filters by status when status is non-empty; pass
// userID to scope to one user. Oldest pending first so reviewers work
// the queue in order.
func (dao *KYCDAO) ListSubmissions(ctx context.Context, status, userID string) ([]*model.KYCSubmission, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	query := `
    MATCH (k:KYCSubmission)
    WHERE ($status = '' OR k.status = $status)
      AND ($userID = '' OR k.userID = $userID)
    RETURN k
    ORDER BY k.submittedAt
    `
	result, err := session.Run(query, map[string]interface{}{
		"status": status,
		"userID": userID,
	})
	if err != nil {
		logger.Error("Failed to execute list KYC submissions query", zap.Error(err))
		return nil, accounts_errors.ErrDatabaseOperation
	}

	var submissions []*model.KYCSubmission
	for result.Next() {
		node := result.Record().Values[0].(neo4j.Node)
		submission, err := mapNodeToKYCSubmission(node)
		if err != nil {
			return nil, accounts_errors.ErrInternalServer
		}
		submissions = append(submissions, submission)
	}

	return submissions, nil
}

// ReviewSubmission records an approve/reject decision. A submission
// that is no longer pending has already been decided and cannot be
// reviewed twice.
func (dao *KYCDAO) ReviewSubmission(ctx context.Context, submissionID, status, reviewerID, note string) (*model.KYCSubmission, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (k:KYCSubmission {id: $id})
        WITH k, k.status AS previous
        SET k.status = $status, k.reviewerID = $reviewerID,
            k.reviewNote = $note, k.reviewedAt = $now
        RETURN previous
        `
		result, err := transaction.Run(query, map[string]interface{}{
			"id":         submissionID,
			"status":     status,
			"reviewerID": reviewerID,
			"note":       note,
			"now":        time.Now().Format(time.RFC3339),
		})
		if err != nil {
			return nil, accounts_errors.ErrDatabaseOperation
		}
		if !result.Next() {
			return nil, accounts_errors.ErrKYCNotFound
		}
		if result.Record().Values[0].(string) != model.KYCStatusPending {
			return nil, accounts_errors.ErrKYCConflict
		}
		return nil, nil
	})

	if err != nil {
		logger.Warn("Failed to review KYC submission", zap.Error(err), zap.String("submissionID", submissionID))
		return nil, err
	}

	logger.Info("KYC submission reviewed",
		zap.String("submissionID", submissionID),
		zap.String("status", status),
		zap.String("reviewerID", reviewerID))

	entry := audit.Entry{
		Timestamp:  time.Now(),
		ActorID:    actorID(ctx),
		Action:     "REVIEW_KYC_SUBMISSION",
		TargetType: "kyc_submission",
		TargetID:   submissionID,
		Success:    true,
		Reason:     note,
	}
	if err := dao.AuditService.Record(ctx, entry); err != nil {
		logger.Error("Failed to create audit log", zap.Error(err))
	}

	return dao.GetSubmission(ctx, submissionID)
}

func mapNodeToKYCSubmission(node neo4j.Node) (*model.KYCSubmission, error) {
	props := node.Props
	submission := &model.KYCSubmission{}

	submission.ID = stringProp(props, "id")
	submission.UserID = stringProp(props, "userID")
	submission.DocumentType = stringProp(props, "documentType")
	submission.DocumentRef = stringProp(props, "documentRef")
	submission.SelfieRef = stringProp(props, "selfieRef")
	submission.Country = stringProp(props, "country")
	submission.Status = stringProp(props, "status")
	submission.ReviewerID = stringProp(props, "reviewerID")
	submission.ReviewNote = stringProp(props, "reviewNote")

	var err error
	if submission.SubmittedAt, err = helper_util.ParseTime(stringProp(props, "submittedAt")); err != nil {
		return nil, fmt.Errorf("failed to parse submittedAt: %w", err)
	}
	if raw := stringProp(props, "reviewedAt"); raw != "" {
		if submission.ReviewedAt, err = helper_util.ParseTime(raw); err != nil {
			return nil, fmt.Errorf("failed to parse reviewedAt: %w", err)
		}
	}

	return submission, nil
}
