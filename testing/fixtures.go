package testing

import (
	"fmt"
	"math/rand"

	"github.com/amirphl/rotalink/models"
	"github.com/amirphl/rotalink/utils"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestAdmin creates an active admin with the given password
func (tf *TestFixtures) CreateTestAdmin(password string) (*models.Admin, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	admin := &models.Admin{
		UUID:         uuid.New(),
		Username:     fmt.Sprintf("admin_%06d", rand.Intn(1000000)),
		PasswordHash: string(hash),
		IsActive:     utils.ToPtr(true),
	}
	if err := tf.DB.DB.Create(admin).Error; err != nil {
		return nil, fmt.Errorf("failed to create test admin: %w", err)
	}
	return admin, nil
}

// CreateTestOperator creates an operator reachable at identity
func (tf *TestFixtures) CreateTestOperator(name, identity string, status models.OperatorStatus) (*models.Operator, error) {
	op := &models.Operator{
		UUID:     uuid.New(),
		Channel:  models.OperatorChannelWhatsApp,
		Identity: identity,
		Schedule: "mon,tue,wed",
		Name:     name,
		Status:   status,
	}
	if err := tf.DB.DB.Create(op).Error; err != nil {
		return nil, fmt.Errorf("failed to create test operator %s: %w", name, err)
	}
	return op, nil
}

// CreateTestCampaign creates a campaign and assigns the operators with the given grades, in order
func (tf *TestFixtures) CreateTestCampaign(slug string, operators []*models.Operator, grades []int) (*models.Campaign, []*models.CampaignOperator, error) {
	if len(operators) != len(grades) {
		return nil, nil, fmt.Errorf("operators and grades differ in length: %d != %d", len(operators), len(grades))
	}

	campaign := &models.Campaign{
		UUID: uuid.New(),
		Slug: slug,
		Name: "Campaign " + slug,
	}
	if err := tf.DB.DB.Create(campaign).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to create test campaign %s: %w", slug, err)
	}

	rows := make([]*models.CampaignOperator, 0, len(operators))
	for i, op := range operators {
		row := &models.CampaignOperator{
			UUID:       uuid.New(),
			CampaignID: campaign.ID,
			OperatorID: op.ID,
			Grade:      grades[i],
		}
		if err := tf.DB.DB.Create(row).Error; err != nil {
			return nil, nil, fmt.Errorf("failed to assign operator %d: %w", op.ID, err)
		}
		rows = append(rows, row)
	}
	return campaign, rows, nil
}
