package config

type Config struct {
	BaseURL  string
	HttpPort int
	Db       struct {
		Dsn         string
		Automigrate bool
	}
	Jwt struct {
		SecretKey string
	}
	Notifications struct {
		Email string
	}
	Smtp struct {
		Host     string
		Port     int
		Username string
		Password string
		From     string
	}
	Identity struct {
		BaseURL string
	}
	Gateway struct {
		BaseURL       string
		ApiKey        string
		ApiSecret     string
		WebhookSecret string
	}
	FileUploader struct {
		CloudName string
		ApiKey    string
		ApiSecret string
	}
	Withdrawal struct {
		MaxJobAttempts  int
		RequeueAfterMin int
	}
	RedisServer  string
	KafkaServers string
}
