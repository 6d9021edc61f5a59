package config

import (
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	MongoDB  MongoDBConfig
	Daraja   DarajaConfig
	Notifier NotifierConfig
	Loyalty  LoyaltyConfig
	Airtime  AirtimeConfig
	Catalog  CatalogConfig
	Sweep    SweepConfig
	LogLevel string
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         string
	AllowedHosts []string
}

// MongoDBConfig holds MongoDB-specific configuration
type MongoDBConfig struct {
	URI      string
	Database string
}

// DarajaConfig holds Safaricom Daraja API-specific configuration
type DarajaConfig struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	Passkey        string
	CallbackURL    string
	TimeoutSeconds int
	MockAPI        bool
}

// NotifierConfig holds outbound messaging gateway configuration
type NotifierConfig struct {
	BaseURL       string
	APIKey        string
	SupportNumber string
	MockGateway   bool
}

// LoyaltyConfig holds the points scheme constants
type LoyaltyConfig struct {
	RedeemThreshold   int
	RedeemPayout      int
	PointsPerPurchase int
}

// AirtimeConfig holds the accepted airtime amount range
type AirtimeConfig struct {
	MinAmount int
	MaxAmount int
}

// CatalogConfig holds the versioned data bundle price table
type CatalogConfig struct {
	Version string
	Bundles map[string]int
}

// SweepConfig holds the stale purchase request sweep settings
type SweepConfig struct {
	StalenessWindowMinutes int
	IntervalMinutes        int
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	// Read configuration
	if err := viper.ReadInConfig(); err != nil {
		// It's okay if config file is not found, we'll use environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	// Unmarshal configuration
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults sets default values for configuration
func setDefaults() {
	viper.SetDefault("Server.Port", "5000")
	viper.SetDefault("Server.AllowedHosts", []string{"http://localhost:3000"})
	viper.SetDefault("MongoDB.URI", "mongodb://localhost:27017")
	viper.SetDefault("MongoDB.Database", "bingwa-sokoni")
	viper.SetDefault("Daraja.BaseURL", "https://sandbox.safaricom.co.ke")
	viper.SetDefault("Daraja.TimeoutSeconds", 10)
	viper.SetDefault("Daraja.MockAPI", true)
	viper.SetDefault("Notifier.MockGateway", true)
	viper.SetDefault("Notifier.SupportNumber", "254700000000")
	viper.SetDefault("Loyalty.RedeemThreshold", 200)
	viper.SetDefault("Loyalty.RedeemPayout", 40)
	viper.SetDefault("Loyalty.PointsPerPurchase", 5)
	viper.SetDefault("Airtime.MinAmount", 5)
	viper.SetDefault("Airtime.MaxAmount", 10000)
	viper.SetDefault("Catalog.Version", "2024-01")
	viper.SetDefault("Catalog.Bundles", map[string]int{
		"1gb-daily":    99,
		"2gb-weekly":   250,
		"5gb-monthly":  500,
		"10gb-monthly": 1000,
	})
	viper.SetDefault("Sweep.StalenessWindowMinutes", 30)
	viper.SetDefault("Sweep.IntervalMinutes", 5)
	viper.SetDefault("LogLevel", "info")
}
