package catalog

import "time"

func defaultLevelThresholds() []int64 {
	return []int64{0, 100, 250, 500, 1000, 2000, 4000, 8000, 15000, 25000}
}

func defaultWindowStart() *time.Time {
	t := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return &t
}

// Default returns the built-in catalog used when no catalog file is
// configured. The seed tool writes this same data set to disk.
func Default() (*Catalog, error) {
	c := &Catalog{
		Version:         1,
		LevelThresholds: defaultLevelThresholds(),
		Actions: []RewardAction{
			{
				ID:          "signup",
				Name:        "Sign Up",
				Description: "Sign up for the community",
				Points:      10,
				Category:    "onboarding",
				OneTime:     true,
			},
			{
				ID:          "complete_profile",
				Name:        "Complete Profile",
				Description: "Complete your member profile",
				Points:      20,
				Category:    "onboarding",
				OneTime:     true,
			},
			{
				ID:          "complete_survey",
				Name:        "Complete Survey",
				Description: "Complete a community survey",
				Points:      30,
				Category:    "engagement",
			},
			{
				ID:          "attend_event",
				Name:        "Attend Event",
				Description: "Attend a community event",
				Points:      50,
				Category:    "engagement",
			},
			{
				ID:          "refer_friend",
				Name:        "Refer a Friend",
				Description: "Refer a friend to the community",
				Points:      25,
				Category:    "referral",
			},
			{
				ID:          "challenge_completion",
				Name:        "Complete Challenge",
				Description: "Complete a community challenge",
				// The challenge definition carries the points.
				Points:   0,
				Category: "challenge",
			},
		},
		Achievements: []AchievementDef{
			{
				ID:          "welcome",
				Name:        "Welcome",
				Description: "Join the community",
				BadgeImage:  "welcome_badge.png",
				Category:    "onboarding",
				Criteria: []Criterion{
					{Type: CriterionActionCount, ActionID: "signup", Count: 1},
				},
				RewardPoints: 5,
			},
			{
				ID:          "survey_taker",
				Name:        "Survey Taker",
				Description: "Complete your first survey",
				BadgeImage:  "survey_badge.png",
				Category:    "engagement",
				Criteria: []Criterion{
					{Type: CriterionActionCount, ActionID: "complete_survey", Count: 1},
				},
				RewardPoints: 10,
			},
			{
				ID:          "survey_master",
				Name:        "Survey Master",
				Description: "Complete 5 surveys",
				BadgeImage:  "survey_master_badge.png",
				Category:    "engagement",
				Criteria: []Criterion{
					{Type: CriterionActionCount, ActionID: "complete_survey", Count: 5},
				},
				RewardPoints: 50,
			},
			{
				ID:          "event_attendee",
				Name:        "Event Attendee",
				Description: "Attend your first community event",
				BadgeImage:  "event_badge.png",
				Category:    "engagement",
				Criteria: []Criterion{
					{Type: CriterionActionCount, ActionID: "attend_event", Count: 1},
				},
				RewardPoints: 15,
			},
			{
				ID:          "event_enthusiast",
				Name:        "Event Enthusiast",
				Description: "Attend 3 community events",
				BadgeImage:  "event_enthusiast_badge.png",
				Category:    "engagement",
				Criteria: []Criterion{
					{Type: CriterionActionCount, ActionID: "attend_event", Count: 3},
				},
				RewardPoints: 30,
			},
			{
				ID:          "community_builder",
				Name:        "Community Builder",
				Description: "Refer 3 friends to the community",
				BadgeImage:  "community_builder_badge.png",
				Category:    "referral",
				Criteria: []Criterion{
					{Type: CriterionActionCount, ActionID: "refer_friend", Count: 3},
				},
				RewardPoints: 40,
			},
			{
				ID:          "level_5",
				Name:        "Level 5 Achieved",
				Description: "Reach level 5",
				BadgeImage:  "level_5_badge.png",
				Category:    "level",
				Criteria: []Criterion{
					{Type: CriterionLevelAtLeast, Level: 5},
				},
				RewardPoints: 100,
			},
		},
		Tiers: []AccessTierDef{
			{
				ID:          "bronze",
				Name:        "Bronze Access",
				Description: "Basic access for all members",
				MinLevel:    1,
				Features: []string{
					"General community access",
					"Public events access",
					"Basic resources",
				},
			},
			{
				ID:          "silver",
				Name:        "Silver Access",
				Description: "Enhanced access for active members",
				MinLevel:    3,
				Features: []string{
					"All Bronze features",
					"Special interest groups",
					"Intermediate resources",
					"Early event registration",
				},
			},
			{
				ID:          "gold",
				Name:        "Gold Access",
				Description: "Premium access for dedicated members",
				MinLevel:    5,
				Features: []string{
					"All Silver features",
					"Exclusive workshops",
					"Advanced resources",
					"Mentorship opportunities",
					"Leadership channels",
				},
			},
			{
				ID:          "platinum",
				Name:        "Platinum Access",
				Description: "Elite access for top contributors",
				MinLevel:    8,
				Features: []string{
					"All Gold features",
					"VIP events",
					"Expert resources",
					"Leadership opportunities",
					"Advisory board eligibility",
				},
			},
		},
		Challenges: []ChallengeDef{
			{
				ID:           "welcome_challenge",
				Name:         "Welcome Challenge",
				Description:  "Complete your profile and introduce yourself",
				RewardPoints: 20,
				Criteria: []Criterion{
					{Type: CriterionActionCount, ActionID: "complete_profile", Count: 1},
				},
				Status:  ChallengeActive,
				StartAt: defaultWindowStart(),
			},
			{
				ID:           "survey_challenge",
				Name:         "Survey Champion",
				Description:  "Complete 3 community surveys",
				RewardPoints: 50,
				Criteria: []Criterion{
					{Type: CriterionActionCount, ActionID: "complete_survey", Count: 3},
				},
				Status:  ChallengeActive,
				StartAt: defaultWindowStart(),
			},
			{
				ID:           "event_challenge",
				Name:         "Event Explorer",
				Description:  "Attend 2 community events",
				RewardPoints: 75,
				Criteria: []Criterion{
					{Type: CriterionActionCount, ActionID: "attend_event", Count: 2},
				},
				Status:  ChallengeActive,
				StartAt: defaultWindowStart(),
			},
			{
				ID:           "referral_challenge",
				Name:         "Community Builder",
				Description:  "Refer 3 friends to the community",
				RewardPoints: 100,
				Criteria: []Criterion{
					{Type: CriterionActionCount, ActionID: "refer_friend", Count: 3},
				},
				Status:  ChallengeActive,
				StartAt: defaultWindowStart(),
			},
			{
				ID:           "level_challenge",
				Name:         "Level Up",
				Description:  "Reach level 5 in the community",
				RewardPoints: 150,
				Criteria: []Criterion{
					{Type: CriterionLevelAtLeast, Level: 5},
				},
				Status:  ChallengeActive,
				StartAt: defaultWindowStart(),
			},
		},
		Content: []ContentItem{
			{
				ID:             "beginner_resources",
				Name:           "Beginner Resources",
				Description:    "Resources for those new to the community",
				ContentType:    "resource_library",
				RequiredLevel:  1,
				RequiredTierID: "bronze",
			},
			{
				ID:             "community_workshops",
				Name:           "Community Workshops",
				Description:    "Regular workshops for community members",
				ContentType:    "event_series",
				RequiredLevel:  2,
				RequiredTierID: "bronze",
			},
			{
				ID:             "special_interest_groups",
				Name:           "Special Interest Groups",
				Description:    "Groups focused on specific topics",
				ContentType:    "group",
				RequiredLevel:  3,
				RequiredTierID: "silver",
			},
			{
				ID:             "advanced_resources",
				Name:           "Advanced Resources",
				Description:    "In-depth resources for experienced members",
				ContentType:    "resource_library",
				RequiredLevel:  5,
				RequiredTierID: "gold",
			},
			{
				ID:             "leadership_channel",
				Name:           "Leadership Channel",
				Description:    "Channel for community leaders",
				ContentType:    "channel",
				RequiredLevel:  5,
				RequiredTierID: "gold",
			},
			{
				ID:             "vip_events",
				Name:           "VIP Events",
				Description:    "Exclusive events for top contributors",
				ContentType:    "event_series",
				RequiredLevel:  8,
				RequiredTierID: "platinum",
			},
			{
				ID:             "advisory_board",
				Name:           "Advisory Board",
				Description:    "Help shape the future of the community",
				ContentType:    "group",
				RequiredLevel:  8,
				RequiredTierID: "platinum",
			},
		},
	}

	if err := c.finalize(); err != nil {
		return nil, err
	}
	return c, nil
}
