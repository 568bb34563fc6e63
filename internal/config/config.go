package config // package config loads application configuration from environment variables

import (
    "errors" // errors detects a missing .env file
    "io/fs"  // fs.ErrNotExist is the error godotenv reports for a missing file
    "os"     // os provides access to environment variables
    "time"   // time parses duration settings

    "github.com/joho/godotenv"   // godotenv loads a local .env file into the environment
    "github.com/sirupsen/logrus" // logrus reports configuration errors and halts execution
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Required values are checked by Load; the rest
// have defaults that suit local development.
type Config struct {
    Env       string // application environment (e.g. "dev", "prod")
    Port      string // HTTP port to listen on
    DBUser    string // database username
    DBPass    string // database password (optional)
    DBHost    string // database host address
    DBPort    string // database port number
    DBName    string // database name
    JWTSecret string // secret used to verify access tokens

    DBMaxOpenConns    int           // connection pool ceiling
    DBMaxIdleConns    int           // idle connections kept open
    DBConnMaxLifetime time.Duration // recycle connections after this long

    SchemaAutoMigrate bool          // create tables on startup when missing
    BookingCodeLength int           // length of random admission codes
    NotifyTimeout     time.Duration // bound on a single notification delivery
    AuditInterval     time.Duration // inventory audit period; 0 disables the job
    ShutdownTimeout   time.Duration // grace period for in-flight requests on shutdown

    LogLevel  string // logrus level name
    LogFormat string // "text" or "json"
    LogDir    string // directory for booking.log written by the consumer

    AMQPURL         string // RabbitMQ URL; empty keeps notifications in the process log
    ConsumerEnabled bool   // run the notification consumer inside the server

    SMTPHost     string // SMTP relay; empty disables email
    SMTPPort     int    // SMTP port
    SMTPUsername string // SMTP auth user
    SMTPPassword string // SMTP auth password
    SMTPFrom     string // sender address
    SMTPFromName string // sender display name
}

// LoadDotEnv loads .env from the working directory when present.  Values
// already set in the environment win.
func LoadDotEnv() {
    if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
        logrus.Warnf("config: reading .env: %v", err)
    }
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
    return Config{
        Env:       must("APP_ENV"),      // environment (dev/test/prod)
        Port:      must("APP_PORT"),     // port to bind the HTTP server
        DBUser:    must("DB_USER"),      // database user
        DBPass:    os.Getenv("DB_PASS"), // database password (empty allowed)
        DBHost:    must("DB_HOST"),      // database host
        DBPort:    must("DB_PORT"),      // database port
        DBName:    must("DB_NAME"),      // database name
        JWTSecret: must("JWT_SECRET"),   // secret used for verifying JWTs

        DBMaxOpenConns:    envInt("DB_MAX_OPEN_CONNS", 25),
        DBMaxIdleConns:    envInt("DB_MAX_IDLE_CONNS", 25),
        DBConnMaxLifetime: envDur("DB_CONN_MAX_LIFETIME", 30*time.Minute),

        SchemaAutoMigrate: envBool("SCHEMA_AUTO_MIGRATE", true),
        BookingCodeLength: envInt("BOOKING_CODE_LENGTH", 10),
        NotifyTimeout:     envDur("NOTIFY_TIMEOUT", 10*time.Second),
        AuditInterval:     envDur("AUDIT_INTERVAL", 5*time.Minute),
        ShutdownTimeout:   envDur("SHUTDOWN_TIMEOUT", 10*time.Second),

        LogLevel:  envStr("LOG_LEVEL", "info"),
        LogFormat: envStr("LOG_FORMAT", "text"),
        LogDir:    envStr("LOG_DIR", "logs"),

        AMQPURL:         amqpURL(),
        ConsumerEnabled: envBool("CONSUMER_ENABLED", true),

        SMTPHost:     os.Getenv("SMTP_HOST"),
        SMTPPort:     envInt("SMTP_PORT", 587),
        SMTPUsername: os.Getenv("SMTP_USERNAME"),
        SMTPPassword: os.Getenv("SMTP_PASSWORD"),
        SMTPFrom:     os.Getenv("SMTP_FROM"),
        SMTPFromName: envStr("SMTP_FROM_NAME", "Box Office"),
    }
}

// amqpURL accepts either RABBITMQ_URL or AMQP_URL.
func amqpURL() string {
    if v := os.Getenv("RABBITMQ_URL"); v != "" {
        return v
    }
    return os.Getenv("AMQP_URL")
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        logrus.Fatalf("missing required env var: %s", key)
    }
    return v
}
