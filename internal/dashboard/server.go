package dashboard

import (
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/weatherupdate/weather-update-service/internal/forecast"
	"github.com/weatherupdate/weather-update-service/internal/models"
	"github.com/weatherupdate/weather-update-service/internal/validation"
)

//go:embed templates/*.html
var templateFS embed.FS

// sessionCookie holds the bearer token for the browser session. HttpOnly so
// page scripts never see the token.
const sessionCookie = "session_token"

// defaultCity is what the forecast dashboard shows before the user searches.
const defaultCity = "London"

// Server renders the browser dashboard: a sign-in/register page and a
// weather page with current conditions and an aggregated 5-day forecast.
// All weather data comes from the API service; the only computation here is
// the per-day aggregation.
type Server struct {
	api    *APIClient
	logger *zap.Logger
	tmpl   *template.Template
}

// NewServer creates a dashboard Server over the API client.
func NewServer(api *APIClient, logger *zap.Logger) (*Server, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Server{
		api:    api,
		logger: logger,
		tmpl:   tmpl,
	}, nil
}

// Router assembles the dashboard route table.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/signin", s.getSignIn).Methods("GET")
	router.HandleFunc("/signin", s.postSignIn).Methods("POST")
	router.HandleFunc("/register", s.postRegister).Methods("POST")
	router.HandleFunc("/logout", s.postLogout).Methods("POST")
	router.HandleFunc("/", s.getDashboard).Methods("GET")
	return router
}

// authPage is the view model for the sign-in/register page.
type authPage struct {
	Error   string
	Message string
}

func (s *Server) getSignIn(w http.ResponseWriter, r *http.Request) {
	s.render(w, "signin.html", authPage{
		Error:   r.URL.Query().Get("error"),
		Message: r.URL.Query().Get("message"),
	})
}

func (s *Server) postSignIn(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	password := r.FormValue("password")
	if username == "" || password == "" {
		s.redirectSignIn(w, r, "Please enter both username and password.", "")
		return
	}

	token, err := s.api.Login(r.Context(), username, password)
	if err != nil {
		s.redirectSignIn(w, r, friendlyMessage(err), "")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) postRegister(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	password := r.FormValue("password")
	confirm := r.FormValue("confirm")
	if username == "" || password == "" || confirm == "" {
		s.redirectSignIn(w, r, "All fields are required.", "")
		return
	}
	if password != confirm {
		s.redirectSignIn(w, r, "Passwords do not match.", "")
		return
	}

	msg, err := s.api.Register(r.Context(), username, password)
	if err != nil {
		s.redirectSignIn(w, r, friendlyMessage(err), "")
		return
	}
	s.redirectSignIn(w, r, "", msg+" You can now sign in.")
}

func (s *Server) postLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	http.Redirect(w, r, "/signin", http.StatusSeeOther)
}

// dashboardPage is the view model for the weather page.
type dashboardPage struct {
	Username string
	City     string
	Error    string

	Current    *models.CurrentWeather
	CurrentErr string

	Summaries []forecast.DailySummary
	Overall   forecast.Overall

	// Chart.js inputs, JSON-encoded server-side.
	ChartDates    template.JS
	ChartTemps    template.JS
	ChartHumidity template.JS
	ChartWind     template.JS
}

func (s *Server) getDashboard(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil || cookie.Value == "" {
		http.Redirect(w, r, "/signin", http.StatusSeeOther)
		return
	}
	token := cookie.Value

	username, err := s.api.Me(r.Context(), token)
	if err != nil {
		// Expired or invalid session: back to sign-in rather than a broken page.
		if isAuthError(err) {
			s.redirectSignIn(w, r, "Your session has expired. Please sign in again.", "")
			return
		}
		s.render(w, "dashboard.html", dashboardPage{Error: friendlyMessage(err)})
		return
	}

	page := dashboardPage{
		Username: username,
		City:     defaultCity,
	}

	if raw := r.URL.Query().Get("city"); raw != "" {
		city, err := validation.ValidateCity(raw, 2, 80)
		if err != nil {
			page.Error = "Please enter a valid city name."
		} else {
			page.City = city
		}
	}

	if page.Error == "" {
		current, err := s.api.CurrentWeather(r.Context(), token, page.City)
		if err != nil {
			if isAuthError(err) {
				s.redirectSignIn(w, r, "Your session has expired. Please sign in again.", "")
				return
			}
			page.CurrentErr = friendlyMessage(err)
		} else {
			page.Current = &current
		}

		fc, err := s.api.Forecast(r.Context(), token, page.City, validation.MaxForecastDays)
		if err != nil {
			if isAuthError(err) {
				s.redirectSignIn(w, r, "Your session has expired. Please sign in again.", "")
				return
			}
			if page.CurrentErr == "" {
				page.Error = friendlyMessage(err)
			}
		} else {
			page.Summaries = forecast.Aggregate(fc.Entries)
			page.Overall = forecast.Summarize(page.Summaries)
			s.fillCharts(&page)
		}
	}

	s.render(w, "dashboard.html", page)
}

// fillCharts JSON-encodes the aggregated series for Chart.js.
func (s *Server) fillCharts(page *dashboardPage) {
	dates := make([]string, 0, len(page.Summaries))
	temps := make([]int, 0, len(page.Summaries))
	humidity := make([]int, 0, len(page.Summaries))
	wind := make([]int, 0, len(page.Summaries))
	for _, d := range page.Summaries {
		dates = append(dates, d.Date[5:]) // MM-DD
		temps = append(temps, d.TempHighC)
		humidity = append(humidity, d.AvgHumidityPct)
		wind = append(wind, d.MaxWindKmh)
	}
	page.ChartDates = jsJSON(dates)
	page.ChartTemps = jsJSON(temps)
	page.ChartHumidity = jsJSON(humidity)
	page.ChartWind = jsJSON(wind)
}

func jsJSON(v interface{}) template.JS {
	raw, err := json.Marshal(v)
	if err != nil {
		return template.JS("[]")
	}
	return template.JS(raw)
}

func (s *Server) redirectSignIn(w http.ResponseWriter, r *http.Request, errMsg, msg string) {
	params := url.Values{}
	if errMsg != "" {
		params.Set("error", errMsg)
	}
	if msg != "" {
		params.Set("message", msg)
	}
	target := "/signin"
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *Server) render(w http.ResponseWriter, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, name, data); err != nil && s.logger != nil {
		s.logger.Error("render template", zap.String("template", name), zap.Error(err))
	}
}

// friendlyMessage maps an API client error to user-facing text. The session
// survives every failure; only the message changes.
func friendlyMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return "Something went wrong talking to the weather API."
	}
	return "Something went wrong talking to the weather API."
}

// isAuthError reports whether err is a 401 from the API (expired or invalid
// token).
func isAuthError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}
