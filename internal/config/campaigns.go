package config

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/zachmoshe/il-elections/internal/model"
)

// CampaignFile locates one input file and names its parser format.
type CampaignFile struct {
	Filename string `yaml:"filename"`
	Format   string `yaml:"format"`
}

// CampaignConfig describes a single campaign to preprocess.
type CampaignConfig struct {
	Name string `yaml:"campaign_name"`
	Date string `yaml:"campaign_date"`
	Data struct {
		BallotsVotes    CampaignFile `yaml:"ballots_votes"`
		BallotsMetadata CampaignFile `yaml:"ballots_metadata"`
	} `yaml:"data"`
}

// Campaign converts the raw yaml record into the model type.
func (c CampaignConfig) Campaign() (model.Campaign, error) {
	date, err := time.Parse("2006-01-02", c.Date)
	if err != nil {
		return model.Campaign{}, eris.Wrapf(err, "config: campaign %s date", c.Name)
	}
	return model.Campaign{Name: c.Name, Date: date}, nil
}

type campaignsFile struct {
	PreprocessingConfig struct {
		Campaigns []CampaignConfig `yaml:"campaigns"`
	} `yaml:"preprocessing_config"`
}

// LoadCampaigns reads the campaigns list from the preprocessing config file.
func LoadCampaigns(path string) ([]CampaignConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read campaigns file %s", path)
	}

	var f campaignsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "config: parse campaigns file %s", path)
	}

	campaigns := f.PreprocessingConfig.Campaigns
	if len(campaigns) == 0 {
		return nil, eris.Errorf("config: no campaigns defined in %s", path)
	}

	seen := make(map[string]bool, len(campaigns))
	for _, c := range campaigns {
		if c.Name == "" {
			return nil, eris.Errorf("config: campaign with empty name in %s", path)
		}
		if seen[c.Name] {
			return nil, eris.Errorf("config: duplicate campaign %q in %s", c.Name, path)
		}
		seen[c.Name] = true
		if _, err := c.Campaign(); err != nil {
			return nil, err
		}
	}
	return campaigns, nil
}
