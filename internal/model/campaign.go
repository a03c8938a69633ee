package model

import (
	"math"
	"time"
)

// CampaignSummary is one row of the grouped campaign listing. Campaigns are
// derived at query time from messages that share a bulk_campaign_id; the name
// and creation time come from the earliest member.
type CampaignSummary struct {
	CampaignID   string    `db:"bulk_campaign_id" json:"campaign_id"`
	CampaignName string    `db:"bulk_campaign_name" json:"campaign_name"`
	TotalSent    int       `db:"total_sent" json:"total_sent"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// CampaignStats holds the read/unread/deleted breakdown for one campaign.
type CampaignStats struct {
	CampaignID         string  `json:"campaign_id"`
	TotalSent          int     `json:"total_sent"`
	ReadCount          int     `json:"read_count"`
	UnreadCount        int     `json:"unread_count"`
	DeletedByUserCount int     `json:"deleted_by_user_count"`
	ReadPercentage     float64 `json:"read_percentage"`
}

// ReadPercentage computes read/total as a percentage rounded to one decimal.
// A campaign with no messages reports 0, never a division error.
func ReadPercentage(readCount, totalSent int) float64 {
	if totalSent == 0 {
		return 0
	}
	return math.Round(float64(readCount)/float64(totalSent)*1000) / 10
}
