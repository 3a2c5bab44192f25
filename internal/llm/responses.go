package llm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JakeFAU/contentplan/internal/plan"
)

type pillarTopicDTO struct {
	Topic             string   `json:"topic"`
	EstimatedArticles int      `json:"estimated_articles"`
	Subtopics         []string `json:"subtopics"`
}

type nicheDTO struct {
	Niche               string           `json:"niche"`
	CompetitionLevel    string           `json:"competition_level"`
	PillarTopics        []pillarTopicDTO `json:"pillar_topics"`
	TotalArticlesNeeded int              `json:"total_articles_needed"`
	Reasoning           string           `json:"reasoning"`
}

// ParseNicheProfile decodes a niche classification. A missing niche label is
// an error; every other field has a default.
func ParseNicheProfile(text string) (plan.NicheProfile, error) {
	var dto nicheDTO
	if err := DecodeJSON(text, &dto); err != nil {
		return plan.NicheProfile{}, err
	}
	niche := strings.TrimSpace(dto.Niche)
	if niche == "" {
		return plan.NicheProfile{}, errors.New("niche response has no niche")
	}
	return plan.NicheProfile{
		Niche:               niche,
		CompetitionLevel:    plan.ParseCompetitionLevel(dto.CompetitionLevel),
		PillarTopics:        toPillarTopics(dto.PillarTopics),
		TotalArticlesNeeded: dto.TotalArticlesNeeded,
		Reasoning:           dto.Reasoning,
	}, nil
}

// ParsePillarTopics accepts {"pillar_topics": [...]} or a bare array.
func ParsePillarTopics(text string) ([]plan.PillarTopic, error) {
	raw, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}
	var topics []pillarTopicDTO
	if strings.HasPrefix(raw, "[") {
		if err := DecodeJSON(raw, &topics); err != nil {
			return nil, err
		}
	} else {
		var wrapper struct {
			PillarTopics []pillarTopicDTO `json:"pillar_topics"`
		}
		if err := DecodeJSON(raw, &wrapper); err != nil {
			return nil, err
		}
		topics = wrapper.PillarTopics
	}
	return toPillarTopics(topics), nil
}

func toPillarTopics(in []pillarTopicDTO) []plan.PillarTopic {
	out := make([]plan.PillarTopic, 0, len(in))
	for _, p := range in {
		topic := strings.TrimSpace(p.Topic)
		if topic == "" {
			continue
		}
		out = append(out, plan.PillarTopic{
			Topic:             topic,
			EstimatedArticles: p.EstimatedArticles,
			Subtopics:         p.Subtopics,
		})
	}
	return out
}

type articleDTO struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Keywords     []string `json:"keywords"`
	ContentType  string   `json:"content_type"`
	Priority     string   `json:"priority"`
	Difficulty   string   `json:"difficulty"`
	SearchIntent string   `json:"search_intent"`
}

type clusterDTO struct {
	Pillar   articleDTO   `json:"pillar"`
	Articles []articleDTO `json:"articles"`
}

// ParseCluster decodes a cluster response into briefs: the pillar brief
// first, then the supporting briefs, all tagged with the pillar topic. A
// response without a pillar title is rejected.
func ParseCluster(text string, pillar plan.PillarTopic) ([]plan.ArticleBrief, plan.Cluster, error) {
	var dto clusterDTO
	if err := DecodeJSON(text, &dto); err != nil {
		return nil, plan.Cluster{}, err
	}
	pillarTitle := strings.TrimSpace(dto.Pillar.Title)
	if pillarTitle == "" {
		return nil, plan.Cluster{}, fmt.Errorf("cluster %q has no pillar article", pillar.Topic)
	}

	briefs := make([]plan.ArticleBrief, 0, len(dto.Articles)+1)
	pillarBrief := toBrief(dto.Pillar, pillar.Topic)
	pillarBrief.ContentType = plan.ContentPillar
	pillarBrief.Priority = plan.PriorityHigh
	briefs = append(briefs, pillarBrief)
	for _, a := range dto.Articles {
		if strings.TrimSpace(a.Title) == "" {
			continue
		}
		brief := toBrief(a, pillar.Topic)
		if brief.ContentType == plan.ContentPillar {
			brief.ContentType = plan.ContentGuide
		}
		briefs = append(briefs, brief)
	}
	return briefs, plan.Cluster{
		PillarTopic:  pillar.Topic,
		PillarTitle:  pillarTitle,
		ArticleCount: len(briefs),
	}, nil
}

func toBrief(a articleDTO, cluster string) plan.ArticleBrief {
	keywords := make([]string, 0, len(a.Keywords))
	for _, k := range a.Keywords {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, k)
		}
	}
	if len(keywords) == 0 {
		keywords = []string{strings.ToLower(strings.TrimSpace(a.Title))}
	}
	return plan.ArticleBrief{
		Title:        strings.TrimSpace(a.Title),
		Category:     cluster,
		Description:  strings.TrimSpace(a.Description),
		Keywords:     keywords,
		ContentType:  plan.ParseContentType(a.ContentType),
		Cluster:      cluster,
		Priority:     plan.ParsePriority(a.Priority),
		Difficulty:   a.Difficulty,
		SearchIntent: a.SearchIntent,
	}
}
