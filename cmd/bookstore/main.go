package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	authapp "github.com/wyfcoding/bookstore/internal/auth/application"
	authmw "github.com/wyfcoding/bookstore/internal/auth/middleware"
	cartapp "github.com/wyfcoding/bookstore/internal/cart/application"
	cartdomain "github.com/wyfcoding/bookstore/internal/cart/domain"
	cartmysql "github.com/wyfcoding/bookstore/internal/cart/infrastructure/persistence/mysql"
	carthttp "github.com/wyfcoding/bookstore/internal/cart/interfaces/http"
	catalogapp "github.com/wyfcoding/bookstore/internal/catalog/application"
	catalogdomain "github.com/wyfcoding/bookstore/internal/catalog/domain"
	catalogmysql "github.com/wyfcoding/bookstore/internal/catalog/infrastructure/persistence/mysql"
	cataloghttp "github.com/wyfcoding/bookstore/internal/catalog/interfaces/http"
	notifapp "github.com/wyfcoding/bookstore/internal/notification/application"
	notifdomain "github.com/wyfcoding/bookstore/internal/notification/domain"
	notifmysql "github.com/wyfcoding/bookstore/internal/notification/infrastructure/persistence/mysql"
	"github.com/wyfcoding/bookstore/internal/notification/infrastructure/sender"
	orderapp "github.com/wyfcoding/bookstore/internal/order/application"
	orderdomain "github.com/wyfcoding/bookstore/internal/order/domain"
	ordermysql "github.com/wyfcoding/bookstore/internal/order/infrastructure/persistence/mysql"
	orderhttp "github.com/wyfcoding/bookstore/internal/order/interfaces/http"
	profileapp "github.com/wyfcoding/bookstore/internal/profile/application"
	profiledomain "github.com/wyfcoding/bookstore/internal/profile/domain"
	profilemysql "github.com/wyfcoding/bookstore/internal/profile/infrastructure/persistence/mysql"
	userapp "github.com/wyfcoding/bookstore/internal/user/application"
	userdomain "github.com/wyfcoding/bookstore/internal/user/domain"
	usermysql "github.com/wyfcoding/bookstore/internal/user/infrastructure/persistence/mysql"
	userhttp "github.com/wyfcoding/bookstore/internal/user/interfaces/http"
	"github.com/wyfcoding/bookstore/pkg/middleware"
	gorm_mysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "configs/config.toml", "path to config file")
	flag.Parse()

	viper.SetConfigFile(configPath)
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Sprintf("read config failed: %v", err))
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	dsn := viper.GetString("database.source")
	db, err := gorm.Open(gorm_mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		panic(fmt.Sprintf("connect db failed: %v", err))
	}
	db.AutoMigrate(
		&catalogdomain.Book{},
		&cartdomain.ShoppingCart{}, &cartdomain.CartItem{},
		&userdomain.User{}, &userdomain.PasswordResetToken{},
		&profiledomain.UserShipping{}, &profiledomain.UserPayment{}, &profiledomain.UserBilling{},
		&orderdomain.Order{}, &orderdomain.ShippingAddress{}, &orderdomain.BillingAddress{}, &orderdomain.Payment{},
		&notifdomain.Notification{},
	)

	// 仓储
	bookRepo := catalogmysql.NewBookRepository(db)
	cartRepo := cartmysql.NewCartRepository(db)
	userRepo := usermysql.NewUserRepository(db)
	profileRepo := profilemysql.NewProfileRepository(db)
	orderRepo := ordermysql.NewOrderRepository(db)
	notifRepo := notifmysql.NewNotificationRepository(db)

	// 邮件出口，未配置 SMTP 时退化为日志输出
	var mailSender notifdomain.Sender
	if host := viper.GetString("mail.host"); host != "" {
		mailSender = sender.NewSMTPSender(
			host,
			viper.GetString("mail.port"),
			viper.GetString("mail.username"),
			viper.GetString("mail.password"),
			viper.GetString("mail.from"),
		)
	} else {
		mailSender = sender.NewLogSender()
	}

	// 应用服务
	mailSvc := notifapp.NewMailService(mailSender, notifRepo, viper.GetString("server.base_url"))
	catalogSvc := catalogapp.NewCatalogService(bookRepo)
	cartSvc := cartapp.NewCartService(cartRepo, bookRepo)
	userSvc := userapp.NewUserService(userRepo, cartSvc, mailSvc)
	profileSvc := profileapp.NewProfileService(profileRepo)
	checkoutSvc := orderapp.NewCheckoutService(orderRepo, cartRepo, bookRepo, userRepo, mailSvc)
	orderQuerySvc := orderapp.NewOrderQueryService(orderRepo)

	tokenSvc := authapp.NewTokenService(
		viper.GetString("auth.secret"),
		viper.GetDuration("auth.session_ttl"),
		viper.GetDuration("auth.remember_ttl"),
	)

	// 接口层
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.GinLoggingMiddleware())
	r.Use(middleware.GinRecoveryMiddleware())
	if origin := viper.GetString("server.cors_origin"); origin != "" {
		r.Use(middleware.GinCORSMiddleware(origin))
	}
	r.Use(authmw.SessionAuth(tokenSvc))
	r.LoadHTMLGlob("web/templates/*.html")
	r.Static("/css", "web/static/css")
	r.Static("/js", "web/static/js")
	r.Static("/image", "web/static/image")

	cataloghttp.NewCatalogHandler(catalogSvc).RegisterRoutes(r)
	carthttp.NewCartHandler(cartSvc).RegisterRoutes(r)
	userhttp.NewAccountHandler(userSvc, profileSvc, orderQuerySvc, tokenSvc).RegisterRoutes(r)
	orderhttp.NewOrderHandler(checkoutSvc, orderQuerySvc, cartSvc, profileSvc).RegisterRoutes(r)

	addr := ":" + viper.GetString("server.port")
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		slog.Info("HTTP server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
}
